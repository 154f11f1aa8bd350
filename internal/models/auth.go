package models

type ProviderType string

const (
	LocalProviderType ProviderType = "local"
)

type AuthLoginBody struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type AuthLoginResponse struct {
	AccessToken string `json:"access_token"`
	MFAEnabled  bool   `json:"mfa_enabled"`
}
