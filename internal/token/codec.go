package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtroode/regicide-accounts/internal/model"
)

// Token layout: <TokenInfo>.<UserInfo>.<Signature>, each chunk base64url without padding.
// The signature is HMAC-SHA256 over the raw TokenInfo bytes followed by the raw UserInfo bytes.

// MinKeyLength is the minimal signing key size in bytes.
const MinKeyLength = 64

const (
	tokenIDLength  = 16
	tokenIDCharset = "qwertyuiopasdfghjklzxcvbnmQWERTYUIOPASDFGHJKLZXCVBNM1234567890"
	// ticksAtUnixEpoch is the number of 100ns ticks between 0001-01-01 and 1970-01-01.
	ticksAtUnixEpoch = 621355968000000000
	ticksPerSecond   = int64(time.Second / TickDuration)
	// MaxTicks is the last tick of 9999-12-31, the upper bound of encodable timestamps.
	MaxTicks = 3155378975999999999
	// TickDuration is the resolution timestamps are encoded with.
	TickDuration = 100 * time.Nanosecond
)

var tokenFormat = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)

var encoding = base64.RawURLEncoding.Strict()

type tokenInfo struct {
	Expiration int64 `json:"expr"`
	Issued     int64 `json:"issued"`
}

type userInfo struct {
	AccountID string `json:"acc_id"`
	TokenID   string `json:"token_id"`
}

// Codec implements model.TokenCodec with an HMAC signing key.
type Codec struct {
	key []byte
	now func() time.Time
}

var _ model.TokenCodec = (*Codec)(nil)

// NewCodec creates a codec signing with key. The key length is checked when signing.
func NewCodec(key []byte) *Codec {
	return &Codec{key: key, now: time.Now}
}

// Build serializes and signs token.
func (c *Codec) Build(token model.AuthToken) (string, error) {
	if len(c.key) < MinKeyLength {
		return "", fmt.Errorf("%w: %w", model.ErrTokenEncoding, model.ErrSigningKeyTooShort)
	}
	if token.Expiration.Before(c.now()) || !token.Expiration.After(token.Issued) {
		return "", fmt.Errorf("%w: %w", model.ErrTokenEncoding, model.ErrTokenExpired)
	}
	if !Encodable(token.Issued) || !Encodable(token.Expiration) {
		return "", fmt.Errorf("%w: %w", model.ErrTokenEncoding, model.ErrTimeOutOfRange)
	}

	infoChunk, err := json.Marshal(tokenInfo{
		Expiration: TimeToTicks(token.Expiration),
		Issued:     TimeToTicks(token.Issued),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrTokenEncoding, err)
	}

	userChunk, err := json.Marshal(userInfo{
		AccountID: token.UserID,
		TokenID:   token.TokenID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrTokenEncoding, err)
	}

	signature, err := jwt.SigningMethodHS256.Sign(signingString(infoChunk, userChunk), c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrTokenEncoding, err)
	}

	return strings.Join([]string{
		encoding.EncodeToString(infoChunk),
		encoding.EncodeToString(userChunk),
		encoding.EncodeToString(signature),
	}, "."), nil
}

// Parse reads the token content. It checks the format only, never the signature or expiry.
func (c *Codec) Parse(token string) (model.AuthToken, error) {
	return Parse(token)
}

// Parse reads the token content without a codec.
func Parse(token string) (model.AuthToken, error) {
	chunks, err := decodeChunks(token)
	if err != nil {
		return model.AuthToken{}, err
	}

	var info tokenInfo
	if err := json.Unmarshal(chunks[0], &info); err != nil {
		return model.AuthToken{}, fmt.Errorf("%w: token info: %w", model.ErrTokenFormat, err)
	}

	var user userInfo
	if err := json.Unmarshal(chunks[1], &user); err != nil {
		return model.AuthToken{}, fmt.Errorf("%w: user info: %w", model.ErrTokenFormat, err)
	}

	return model.AuthToken{
		UserID:     user.AccountID,
		Issued:     TicksToTime(info.Issued),
		Expiration: TicksToTime(info.Expiration),
		TokenID:    user.TokenID,
	}, nil
}

// VerifySignature reports whether token is well formed and signed with the codec key.
// Expiry is not checked.
func (c *Codec) VerifySignature(token string) bool {
	if len(c.key) < MinKeyLength {
		return false
	}

	chunks, err := decodeChunks(token)
	if err != nil {
		return false
	}

	err = jwt.SigningMethodHS256.Verify(signingString(chunks[0], chunks[1]), chunks[2], c.key)
	return err == nil
}

// GenerateTokenID returns a random alphanumeric token identifier.
func (c *Codec) GenerateTokenID() (string, error) {
	return GenerateTokenID()
}

// GenerateTokenID returns a random alphanumeric token identifier.
func GenerateTokenID() (string, error) {
	buf := make([]byte, tokenIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	out := make([]byte, tokenIDLength)
	for i, b := range buf {
		out[i] = tokenIDCharset[int(b)%len(tokenIDCharset)]
	}

	return string(out), nil
}

var (
	minTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Encodable reports whether t falls between 0001-01-01 and 9999-12-31 inclusive.
func Encodable(t time.Time) bool {
	return !t.Before(minTime) && t.Before(maxTime)
}

// TimeToTicks converts t into 100ns ticks since 0001-01-01 UTC. t must be Encodable.
func TimeToTicks(t time.Time) int64 {
	return t.Unix()*ticksPerSecond + int64(t.Nanosecond())/int64(TickDuration) + ticksAtUnixEpoch
}

// TicksToTime converts 100ns ticks since 0001-01-01 UTC into a UTC time.
func TicksToTime(ticks int64) time.Time {
	rel := ticks - ticksAtUnixEpoch
	sec, rem := rel/ticksPerSecond, rel%ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*int64(TickDuration)).UTC()
}

func decodeChunks(token string) ([3][]byte, error) {
	var out [3][]byte
	if !tokenFormat.MatchString(token) {
		return out, model.ErrTokenFormat
	}

	parts := strings.Split(token, ".")
	for i, part := range parts {
		decoded, err := encoding.DecodeString(part)
		if err != nil {
			return out, fmt.Errorf("%w: chunk %d: %w", model.ErrTokenFormat, i, err)
		}
		out[i] = decoded
	}

	return out, nil
}

func signingString(info, user []byte) string {
	buf := make([]byte, 0, len(info)+len(user))
	buf = append(buf, info...)
	buf = append(buf, user...)
	return string(buf)
}
