package relay

// SMTPConfig carries caller-supplied SMTP session parameters. It exists
// only for the lifetime of one request and is never persisted.
type SMTPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// Secure explicitly selects SSL-on-connect. When nil, SSL is derived
	// from the port (465 implies SSL, everything else uses STARTTLS when
	// offered by the server).
	Secure *bool `json:"secure,omitempty"`
	User   string `json:"user"`
	// Pass is a caller secret. It must never appear in logs, error
	// messages, or metric labels.
	Pass string `json:"pass"`
}

// Envelope describes one outbound plain-text message.
type Envelope struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
