package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"postharvest/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("postharvest").Show($toast)
	`, title, message)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier prints run events and mirrors them as desktop notifications
// according to the notification settings
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return NewNotifierWithSender(cfg, sender)
}

// NewNotifierWithSender creates a Notifier with an explicit sender
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, cfg: cfg}
}

func (n *Notifier) send(title, message string) {
	if !n.cfg.Enabled || n.sender == nil {
		return
	}
	// desktop notifications are best-effort
	_ = n.sender.Send(title, message)
}

// RunComplete reports the end of a scrape run
func (n *Notifier) RunComplete(s Summary) {
	title := "Scrape finished"
	message := fmt.Sprintf("%s: %d posts (%d new)", s.Reason, s.Total, s.Added)

	printf(false, "\n%s: %s\n", Green(title), Green(message))
	if n.cfg.OnComplete {
		n.send(title, message)
	}
}

// Degraded reports that the session entered the degraded state
func (n *Notifier) Degraded(cycle int, reason string) {
	title := "Session degraded"
	message := fmt.Sprintf("cycle %d: %s", cycle, reason)

	printf(false, "\n%s: %s\n", Yellow(title), Yellow(message))
	if n.cfg.OnDegraded {
		n.send(title, message)
	}
}

// Failed reports a run that stopped with an error
func (n *Notifier) Failed(err error) {
	title := "Scrape failed"

	printf(true, "\n%s: %s\n", Red(title), Red(err.Error()))
	if n.cfg.OnComplete {
		n.send(title, err.Error())
	}
}
