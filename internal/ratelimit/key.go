package ratelimit

import "strings"

// KeyFor builds the limiter key of a client within a tier.
func KeyFor(tier Tier, clientID string) string {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || tier == "" {
		return ""
	}
	return string(tier) + ":" + clientID
}
