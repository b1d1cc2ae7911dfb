package email

import "github.com/frankie-agent/frankie/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		return NewNotifier(
			config["smtp_host"],
			config["smtp_port"],
			config["smtp_from"],
			config["smtp_password"],
			config["smtp_to"],
		), nil
	})
}
