package utils

import (
	"context"
	"crypto/rand"
	"os"
	"time"

	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/oabuhamdan/event-coordinator/storage"
)

var bgContext = context.Background()

// UnsubscribeToken is embedded in the opt-out link every notification
// carries, so recipients can unsubscribe without signing in.
type UnsubscribeToken struct {
	SubscriptionID uint `json:"subscriptionID"`
	Anonymous      bool `json:"anonymous"`
}

func CreateUnsubscribeToken(subscriptionID uint, anonymous bool) (string, error) {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("SUBSCRIPTION_TOKEN_SECRET"), 365*24*time.Hour)

	claims := UnsubscribeToken{
		SubscriptionID: subscriptionID,
		Anonymous:      anonymous,
	}

	token, err := signer.Sign(claims)
	if err != nil {
		return "", err
	}

	return string(token), nil
}

func ParseUnsubscribeToken(token string) (*UnsubscribeToken, error) {
	verifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("SUBSCRIPTION_TOKEN_SECRET")))

	verified, err := verifier.VerifyToken([]byte(token))
	if err != nil {
		return nil, err
	}

	var claims UnsubscribeToken
	if err := verified.Claims(&claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// ConsumeUnsubscribeToken marks a token used so the link only works once.
// If Redis is unreachable the unsubscribe still goes through.
func ConsumeUnsubscribeToken(token string) bool {
	if storage.Redis == nil {
		return true
	}
	ok, err := storage.Redis.SetNX(bgContext, "unsub:"+token, "used", 30*24*time.Hour).Result()
	if err != nil {
		return true
	}
	return ok
}

// GenerateShortToken returns a URL-safe random string of the given length (bytes*2 hex).
func GenerateShortToken(n int) string {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return ""
	}
	const hex = "0123456789abcdef"
	out := make([]byte, n*2)
	for i, v := range b {
		out[i*2] = hex[v>>4]
		out[i*2+1] = hex[v&0x0f]
	}
	return string(out)
}
