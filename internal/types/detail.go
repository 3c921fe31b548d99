// internal/types/detail.go
package types

import (
	"encoding/json"
	"fmt"
)

// ArtifactDetail is the type-specific payload of an artifact. One
// concrete detail type exists per ArtifactType, so a switch over the
// variants is exhaustively checkable instead of digging through an
// untyped blob.
type ArtifactDetail interface {
	DetailType() ArtifactType
}

type PaymentHandleDetail struct {
	Handle   string `json:"handle"`
	Provider string `json:"provider,omitempty"`
}

func (PaymentHandleDetail) DetailType() ArtifactType { return ArtifactPaymentHandle }

type BankAccountDetail struct {
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc,omitempty"`
}

func (BankAccountDetail) DetailType() ArtifactType { return ArtifactBankAccount }

type PhoneNumberDetail struct {
	CountryCode string `json:"country_code,omitempty"`
	National    string `json:"national"`
}

func (PhoneNumberDetail) DetailType() ArtifactType { return ArtifactPhoneNumber }

type PhishingLinkDetail struct {
	Scheme string `json:"scheme,omitempty"`
	Host   string `json:"host"`
}

func (PhishingLinkDetail) DetailType() ArtifactType { return ArtifactPhishingLink }

type KeywordDetail struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category,omitempty"`
}

func (KeywordDetail) DetailType() ArtifactType { return ArtifactKeyword }

func EncodeDetail(d ArtifactDetail) (json.RawMessage, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode artifact detail: %w", err)
	}
	return raw, nil
}

// DecodeDetail restores the concrete detail variant for an artifact type.
func DecodeDetail(t ArtifactType, raw json.RawMessage) (ArtifactDetail, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var d ArtifactDetail
	switch t {
	case ArtifactPaymentHandle:
		d = &PaymentHandleDetail{}
	case ArtifactBankAccount:
		d = &BankAccountDetail{}
	case ArtifactPhoneNumber:
		d = &PhoneNumberDetail{}
	case ArtifactPhishingLink:
		d = &PhishingLinkDetail{}
	case ArtifactKeyword:
		d = &KeywordDetail{}
	default:
		return nil, fmt.Errorf("unknown artifact type %q", t)
	}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("decode %s detail: %w", t, err)
	}
	return d, nil
}
