package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	reportIDLength   = 24
	reportIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var reportIDAlphabetSize = big.NewInt(int64(len(reportIDAlphabet)))

// newReportID returns a 24 character mixed-case alphanumeric identifier (~142 bits).
func newReportID() (string, error) {
	buf := make([]byte, reportIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, reportIDAlphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate report id: %w", err)
		}
		buf[i] = reportIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}
