package notify

// Notifier 向用户发送通知。
type Notifier interface {
	// SendWelcome 在注册成功后发送欢迎邮件。
	SendWelcome(toEmail, name string) error
}
