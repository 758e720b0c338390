package payments

import "crypto/rand"

const keyChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ConfirmationCode returns a placeholder payment confirmation code. No
// payment is actually processed.
func ConfirmationCode() string {
	return randomKey(10)
}

func randomKey(length int) string {
	buf := make([]byte, length)
	rand.Read(buf)
	for i := range buf {
		buf[i] = keyChars[int(buf[i])%len(keyChars)]
	}
	return string(buf)
}
