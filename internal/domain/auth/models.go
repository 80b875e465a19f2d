package auth

import "time"

type Credentials struct {
	ID           string
	Role         string
	AdminRole    string
	PasswordHash string
	Status       string
	MFAEnabled   bool
	MFASecretEnc []byte
}

type RefreshToken struct {
	ID         string
	FamilyID   string
	SubjectID  string
	Role       string
	AdminRole  string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy string
	UserAgent  string
	IP         string
	CreatedAt  time.Time
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type ClientMeta struct {
	UserAgent string
	IP        string
}

type PasswordReset struct {
	SubjectID string
	Role      string
	Token     string
	ExpiresAt time.Time
}
