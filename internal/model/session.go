package model

// LoginResult is the outcome code of a login request.
type LoginResult string

const (
	LoginBadRequest         LoginResult = "BadRequest"
	LoginInvalidCredentials LoginResult = "InvalidCredentials"
	LoginSuccess            LoginResult = "Success"
	LoginDatabaseError      LoginResult = "DatabaseError"
)

// RegisterResult is the outcome code of a registration request.
type RegisterResult string

const (
	RegisterError           RegisterResult = "Error"
	RegisterInvalidUsername RegisterResult = "InvalidUsername"
	RegisterInvalidDispName RegisterResult = "InvalidDispName"
	RegisterInvalidEmail    RegisterResult = "InvalidEmail"
	RegisterUsernameTaken   RegisterResult = "UsernameTaken"
	RegisterEmailExists     RegisterResult = "EmailExists"
	RegisterBadPassHash     RegisterResult = "BadPassHash"
	RegisterSuccess         RegisterResult = "Success"
)

// LogoutResult is the outcome code of a logout request.
type LogoutResult string

const (
	LogoutError        LogoutResult = "Error"
	LogoutInvalidToken LogoutResult = "InvalidToken"
	LogoutSuccess      LogoutResult = "Success"
)

type LoginRequest struct {
	Username string `json:"Username"`
	PassHash string `json:"PassHash"`
}

type LoginResponse struct {
	Result    LoginResult `json:"Result"`
	Account   *Account    `json:"Account,omitempty"`
	AuthToken string      `json:"AuthToken,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"Username"`
	PassHash string `json:"PassHash"`
	DispName string `json:"DispName"`
	Email    string `json:"Email"`
}

type RegisterResponse struct {
	Result  RegisterResult `json:"Result"`
	Account *Account       `json:"Account,omitempty"`
	Token   string         `json:"Token,omitempty"`
}

type LogoutRequest struct {
	AuthToken string `json:"AuthToken"`
}

type LogoutResponse struct {
	Result LogoutResult `json:"Result"`
}

type VerifyRequest struct {
	AuthToken string `json:"AuthToken"`
}

type VerifyResponse struct {
	Result bool `json:"Result"`
}
