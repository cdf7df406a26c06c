package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/team-builder-go/pkg/loader"
	"github.com/arnavshah/team-builder-go/pkg/models"
)

// ValidateInput checks a JSON build request without solving it
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.BuildInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(input.People) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one person is required"})
		return
	}

	cfg := h.requestConfig(&input)
	if cfg.Teams.Variant == "leads" && len(input.Leads) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one lead is required"})
		return
	}

	// Check for duplicate IDs
	for _, rows := range [][]map[string]string{input.People, input.Leads} {
		ids := make(map[string]bool)
		for _, row := range rows {
			id := row[cfg.Teams.IDAttribute]
			if id == "" {
				continue
			}
			if ids[id] {
				c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate ID: " + id})
				return
			}
			ids[id] = true
		}
	}

	if _, err := loader.ParseCriteria(cfg.Teams.Criteria, nil); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"people_count": len(input.People),
			"lead_count":   len(input.Leads),
		},
	})
}
