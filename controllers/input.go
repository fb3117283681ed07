package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	models "github.com/phillip/charity-campaigns-go/models"
	services "github.com/phillip/charity-campaigns-go/services"
	utils "github.com/phillip/charity-campaigns-go/utils"
)

// Number decodes from a JSON number or a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return n.parse(s)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("expected a number")
	}
	*n = Number(f)
	return nil
}

func (n *Number) parse(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", s)
	}
	*n = Number(f)
	return nil
}

// campaignBody is the JSON shape of campaign create and update requests.
// Absent keys decode to nil.
type campaignBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Goal        *Number `json:"goal"`
	Image       *string `json:"image"`
	EndDate     *string `json:"end_date"`
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == gin.MIMEMultipartPOSTForm || ct == gin.MIMEPOSTForm
}

// bindCampaignBody reads a JSON or form request into campaignBody, keeping
// the difference between a missing field and an empty one.
func bindCampaignBody(c *gin.Context) (campaignBody, error) {
	var body campaignBody
	if !isForm(c) {
		if err := c.ShouldBindJSON(&body); err != nil {
			return body, models.Invalid("invalid request body: %v", err)
		}
		return body, nil
	}

	field := func(key string) *string {
		if v, ok := c.GetPostForm(key); ok {
			return &v
		}
		return nil
	}
	body.Title = field("title")
	body.Description = field("description")
	body.Image = field("image")
	body.EndDate = field("end_date")
	if g := field("goal"); g != nil {
		var n Number
		if err := n.parse(*g); err != nil {
			return body, models.Invalid("goal: %v", err)
		}
		body.Goal = &n
	}
	return body, nil
}

func (b campaignBody) patch() (models.CampaignPatch, error) {
	p := models.CampaignPatch{
		Title:       b.Title,
		Description: b.Description,
		Image:       b.Image,
	}
	if b.Goal != nil {
		g := float64(*b.Goal)
		p.Goal = &g
	}
	if b.EndDate != nil {
		if strings.TrimSpace(*b.EndDate) == "" {
			p.ClearEndDate = true
		} else {
			t, err := utils.ParseDate(*b.EndDate)
			if err != nil {
				return p, models.Invalid("%v", err)
			}
			p.EndDate = &t
		}
	}
	return p, nil
}

// uploadedImage stores a multipart "image" file and returns its URL. It
// returns nil when no file was sent.
func uploadedImage(c *gin.Context, images services.ImageStore) (*string, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, nil
	}
	fileHeader, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, models.Invalid("invalid form data")
	}
	if images == nil {
		return nil, models.Invalid("image uploads are not configured")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, models.Invalid("failed to open image")
	}
	defer file.Close()

	url, err := images.Upload(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		return nil, fmt.Errorf("image upload failed: %w", err)
	}
	return &url, nil
}

// discardUpload removes an image stored for a request that then failed.
func discardUpload(c *gin.Context, images services.ImageStore, url *string) {
	if url == nil || images == nil {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	if err := images.Delete(ctx, *url); err != nil {
		slog.WarnContext(ctx, "uploaded image not removed", "url", *url, "error", err)
	}
}
