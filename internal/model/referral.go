package model

type Invitation struct {
	ReferrerID string
	ReferralID string
}

// Referral is a direct child of a referrer in the invitation forest.
type Referral struct {
	TelegramID             string
	ReferralMessageChanged bool
}

type ReferralInfo struct {
	RealName          string
	UserURLForMessage string
}
