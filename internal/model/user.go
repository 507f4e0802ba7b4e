package model

import "time"

type User struct {
	TelegramID             string
	Username               string
	Name                   string
	RegistrationDate       time.Time
	UserURL                string
	IsReferral             bool
	ReferralMessageChanged bool
	ReferralURL            string
	InfoRefID              *int64
}

type Registration struct {
	TelegramID       string
	RegistrationDate time.Time
}
