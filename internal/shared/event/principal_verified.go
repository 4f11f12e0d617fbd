package event

const PrincipalVerifiedDestination string = "auth_principal_verified"
const PrincipalVerifiedConsumerNotifier string = "auth_principal_verified_notifier"

type PrincipalVerifiedMessage struct {
	PrincipalID int64  `json:"principal_id"`
	Identity    string `json:"identity"`
}
