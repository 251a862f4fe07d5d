package api

import (
	"fmt"
	"strings"
)

// ValidateAddPlayerRequest validates an add-player request
func ValidateAddPlayerRequest(req *AddPlayerRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// ValidateSubmitRoundRequest validates a submit-round request
func ValidateSubmitRoundRequest(req *SubmitRoundRequest) error {
	if req.Scores == nil {
		return fmt.Errorf("scores is required")
	}
	return nil
}

// ValidateThemeRequest validates a theme preference update
func ValidateThemeRequest(req *ThemePreference) error {
	if strings.TrimSpace(req.Theme) == "" {
		return fmt.Errorf("theme is required")
	}
	const maxThemeLen = 64
	if len(req.Theme) > maxThemeLen {
		return fmt.Errorf("theme too long (max %d characters)", maxThemeLen)
	}
	return nil
}
