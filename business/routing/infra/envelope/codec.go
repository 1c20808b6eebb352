// Package envelope encodes quotes as compact HS256 JWS tokens. The payload is
// the canonical JSON of the quote with integer amounts as decimal strings.
package envelope

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/fd1az/paybridge/business/routing/app"
	"github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
)

// Version is bumped whenever the payload shape changes.
const Version = 1

var _ app.EnvelopeCodec = (*Codec)(nil)

// Codec signs and verifies route envelopes.
type Codec struct {
	secret []byte
	issuer string
	assets *asset.Registry
}

// New creates a Codec. Assets are resolved against registry on decode.
func New(secret, issuer string, registry *asset.Registry) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("envelope: secret must be at least 32 bytes")
	}
	return &Codec{secret: []byte(secret), issuer: issuer, assets: registry}, nil
}

type wirePayload struct {
	Kind            domain.PayloadKind `json:"kind"`
	Target          string             `json:"target,omitempty"`
	CallData        string             `json:"callData,omitempty"`
	Value           string             `json:"value,omitempty"`
	ApprovalAddress string             `json:"approvalAddress,omitempty"`
	DepositAddress  string             `json:"depositAddress,omitempty"`
	DepositMemo     string             `json:"depositMemo,omitempty"`
}

type wireQuote struct {
	RequestID        string      `json:"requestId"`
	Provider         string      `json:"provider"`
	FromChain        uint64      `json:"fromChain"`
	FromAsset        string      `json:"fromAsset"`
	FromAddress      string      `json:"fromAddress"`
	ToChain          uint64      `json:"toChain"`
	ToAsset          string      `json:"toAsset"`
	ToAddress        string      `json:"toAddress"`
	FromAmount       string      `json:"fromAmount"`
	ToAmount         string      `json:"toAmount"`
	ToAmountEstimate string      `json:"toAmountEstimate"`
	ToAmountMin      string      `json:"toAmountMin"`
	PlatformFee      string      `json:"platformFee"`
	ProviderFee      string      `json:"providerFee"`
	Payload          wirePayload `json:"payload"`
	MerchantAddress  string      `json:"merchantAddress,omitempty"`
	MerchantWebhook  string      `json:"merchantWebhook,omitempty"`
	IssuedAt         string      `json:"issuedAt"`
	Expiry           string      `json:"expiry"`
}

type claims struct {
	jwt.RegisteredClaims
	Version int       `json:"v"`
	Quote   wireQuote `json:"quote"`
}

// Encode signs q.
func (c *Codec) Encode(q domain.Quote) (string, error) {
	wq := wireQuote{
		RequestID:        q.RequestID,
		Provider:         q.Provider,
		FromChain:        q.Route.FromChain(),
		FromAsset:        q.Route.From.Address(),
		FromAddress:      q.Route.FromAddress,
		ToChain:          q.Route.ToChain(),
		ToAsset:          q.Route.To.Address(),
		ToAddress:        q.Route.ToAddress,
		FromAmount:       q.FromAmount.RawString(),
		ToAmount:         q.ToAmount.RawString(),
		ToAmountEstimate: q.ToAmountEstimate.RawString(),
		ToAmountMin:      q.ToAmountMin.RawString(),
		PlatformFee:      q.PlatformFee.RawString(),
		ProviderFee:      q.ProviderFee.RawString(),
		Payload: wirePayload{
			Kind:            q.Payload.Kind,
			Target:          q.Payload.Target,
			ApprovalAddress: q.Payload.ApprovalAddress,
			DepositAddress:  q.Payload.DepositAddress,
			DepositMemo:     q.Payload.DepositMemo,
		},
		MerchantAddress: q.MerchantAddress,
		MerchantWebhook: q.MerchantWebhook,
		IssuedAt:        q.IssuedAt.UTC().Format(time.RFC3339Nano),
		Expiry:          q.Expiry.UTC().Format(time.RFC3339Nano),
	}
	if len(q.Payload.CallData) > 0 {
		wq.Payload.CallData = "0x" + hex.EncodeToString(q.Payload.CallData)
	}
	if q.Payload.Value != nil {
		wq.Payload.Value = q.Payload.Value.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   c.issuer,
			ID:       q.RequestID,
			IssuedAt: jwt.NewNumericDate(q.IssuedAt),
		},
		Version: Version,
		Quote:   wq,
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err), apperror.WithContext("sign envelope"))
	}
	return signed, nil
}

// Decode verifies and parses an envelope. Expiry is not checked here.
func (c *Codec) Decode(envelope string) (domain.Quote, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(envelope), &cl, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return domain.Quote{}, malformed(err)
	}
	if cl.Issuer != c.issuer {
		return domain.Quote{}, malformed(fmt.Errorf("issuer %q", cl.Issuer))
	}
	if cl.Version != Version {
		return domain.Quote{}, malformed(fmt.Errorf("version %d", cl.Version))
	}

	q, err := c.fromWire(cl.Quote)
	if err != nil {
		return domain.Quote{}, malformed(err)
	}
	return q, nil
}

func (c *Codec) fromWire(w wireQuote) (domain.Quote, error) {
	from, err := c.assets.Lookup(w.FromChain, w.FromAsset)
	if err != nil {
		return domain.Quote{}, err
	}
	to, err := c.assets.Lookup(w.ToChain, w.ToAsset)
	if err != nil {
		return domain.Quote{}, err
	}

	q := domain.Quote{
		RequestID: w.RequestID,
		Provider:  w.Provider,
		Route: domain.Route{
			From:        from,
			To:          to,
			FromAddress: w.FromAddress,
			ToAddress:   w.ToAddress,
		},
		Payload: domain.ExecutionPayload{
			Kind:            w.Payload.Kind,
			Target:          w.Payload.Target,
			ApprovalAddress: w.Payload.ApprovalAddress,
			DepositAddress:  w.Payload.DepositAddress,
			DepositMemo:     w.Payload.DepositMemo,
		},
		MerchantAddress: w.MerchantAddress,
		MerchantWebhook: w.MerchantWebhook,
	}

	amounts := []struct {
		dst *asset.Amount
		a   *asset.Asset
		raw string
	}{
		{&q.FromAmount, from, w.FromAmount},
		{&q.ToAmount, to, w.ToAmount},
		{&q.ToAmountEstimate, to, w.ToAmountEstimate},
		{&q.ToAmountMin, to, w.ToAmountMin},
		{&q.PlatformFee, from, w.PlatformFee},
		{&q.ProviderFee, from, w.ProviderFee},
	}
	for _, am := range amounts {
		v, err := asset.ParseRaw(am.a, am.raw)
		if err != nil {
			return domain.Quote{}, err
		}
		*am.dst = v
	}

	switch w.Payload.Kind {
	case domain.PayloadContractCall, domain.PayloadDepositAddress:
	default:
		return domain.Quote{}, fmt.Errorf("payload kind %q", w.Payload.Kind)
	}
	if w.Payload.CallData != "" {
		data, err := hex.DecodeString(strings.TrimPrefix(w.Payload.CallData, "0x"))
		if err != nil {
			return domain.Quote{}, fmt.Errorf("call data: %w", err)
		}
		q.Payload.CallData = data
	}
	if w.Payload.Value != "" {
		v, ok := new(big.Int).SetString(w.Payload.Value, 10)
		if !ok || v.Sign() < 0 {
			return domain.Quote{}, fmt.Errorf("value %q", w.Payload.Value)
		}
		q.Payload.Value = v
	}

	if q.IssuedAt, err = time.Parse(time.RFC3339Nano, w.IssuedAt); err != nil {
		return domain.Quote{}, err
	}
	if q.Expiry, err = time.Parse(time.RFC3339Nano, w.Expiry); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

func malformed(cause error) error {
	return apperror.New(apperror.CodeEnvelopeMalformed, apperror.WithCause(cause))
}
