package event

const OTPIssuedDestination string = "auth_otp_issued"
const OTPIssuedConsumerNotifier string = "auth_otp_issued_notifier"

type OTPIssuedMessage struct {
	PrincipalID int64  `json:"principal_id"`
	Identity    string `json:"identity"`
	Code        string `json:"code"`
	ExpiresAt   int64  `json:"expires_at"`
}
