package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender sends one desktop notification
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
	escape := func(s string) string { return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s) }
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
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("storysnap").Show($toast)
	`, escape(title), escape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// DesktopNotifier echoes notifications on the console and, where supported,
// raises a desktop notification
type DesktopNotifier struct {
	sender  NotificationSender
	console *Console
}

// NewDesktopNotifier picks the sender for the current platform
func NewDesktopNotifier(console *Console) *DesktopNotifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}
	return NewDesktopNotifierWithSender(console, sender)
}

// NewDesktopNotifierWithSender uses an explicit sender; nil disables desktop notifications
func NewDesktopNotifierWithSender(console *Console, sender NotificationSender) *DesktopNotifier {
	if console == nil {
		console = Stdout()
	}
	return &DesktopNotifier{sender: sender, console: console}
}

// LoginRequired tells the operator to log in in the browser window
func (n *DesktopNotifier) LoginRequired(timeout string) {
	msg := "Log in to Instagram in the browser window (waiting up to " + timeout + ")"
	n.console.Warning(msg)
	n.send("storysnap: login required", msg)
}

// RunComplete announces the end of a run
func (n *DesktopNotifier) RunComplete(saved, attempted int, dir string) {
	msg := fmt.Sprintf("Saved %d of %d slides to %s", saved, attempted, dir)
	n.send("storysnap: capture finished", msg)
}

// RunFailed announces a fatal error
func (n *DesktopNotifier) RunFailed(err error) {
	n.send("storysnap: capture failed", err.Error())
}

func (n *DesktopNotifier) send(title, message string) {
	if n.sender != nil {
		// notifications are best effort
		_ = n.sender.Send(title, message)
	}
}
