package models

// AffiliateStatus is the moderation state of an affiliate.
type AffiliateStatus string

const (
	AffiliateActive  AffiliateStatus = "active"
	AffiliatePending AffiliateStatus = "pending"
	AffiliateBlocked AffiliateStatus = "blocked"
)

// Affiliate is a reseller listed on the instructor dashboard.
type Affiliate struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	TotalSales     int             `json:"totalSales"`
	CommissionRate float64         `json:"commissionRate"`
	Status         AffiliateStatus `json:"status"`
	JoinDate       string          `json:"joinDate"`
}

// SignatureFont is one of the script fonts offered for the instructor signature.
type SignatureFont string

const (
	FontGreatVibes   SignatureFont = "great-vibes"
	FontAllura       SignatureFont = "allura"
	FontSacramento   SignatureFont = "sacramento"
	FontPinyonScript SignatureFont = "pinyon-script"
)

// Signature is printed on certificates of the instructor's courses.
type Signature struct {
	Text string        `json:"text" validate:"required,max=80"`
	Font SignatureFont `json:"font" validate:"omitempty,oneof=great-vibes allura sacramento pinyon-script"`
}
