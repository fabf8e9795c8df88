// Package relay implements the mail dispatch contract of the smtp-relay
// service: request-scoped SMTP credentials and envelope types, input
// validation, and a gomail-backed dispatcher that verifies the supplied
// credentials and transmits exactly one message per request.
package relay
