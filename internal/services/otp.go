package services

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
	"time"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/internal/models"
)

const otpCharSet = "1234567890"

// GenerateOTPCode returns a random numeric code of the given length.
func GenerateOTPCode(length int) (string, error) {
	digits := big.NewInt(int64(len(otpCharSet)))
	var code strings.Builder
	code.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, digits)
		if err != nil {
			return "", err
		}
		code.WriteByte(otpCharSet[n.Int64()])
	}
	return code.String(), nil
}

// checkOTP accepts code only if it equals the issued one and now is not past
// the expiry. A wrong code is reported before expiry is considered.
func checkOTP(user *models.User, code string, now time.Time) error {
	if !user.HasOTP() || subtle.ConstantTimeCompare([]byte(user.OTP), []byte(code)) != 1 {
		return apperror.New(apperror.KindInvalidCode, "invalid verification code")
	}
	if now.After(*user.OTPExpiry) {
		return apperror.New(apperror.KindExpired, "verification code has expired")
	}
	return nil
}
