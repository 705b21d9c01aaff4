package assets

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"dreamforge-workers/internal/common/config"
)

var (
	ErrNoImageOutput     = errors.New("IMAGE_OUTPUT_MISSING")
	ErrUnsupportedVendor = errors.New("UNSUPPORTED_IMAGE_VENDOR")
)

const (
	imageSize = 1024
	cfgScale  = 8
	sdxlSteps = 30
)

type titanRequest struct {
	TaskType          string `json:"taskType"`
	TextToImageParams struct {
		Text string `json:"text"`
	} `json:"textToImageParams"`
	ImageGenerationConfig struct {
		NumberOfImages int    `json:"numberOfImages"`
		Quality        string `json:"quality"`
		Height         int    `json:"height"`
		Width          int    `json:"width"`
		CfgScale       int    `json:"cfgScale"`
		Seed           int    `json:"seed"`
	} `json:"imageGenerationConfig"`
}

type titanResponse struct {
	Images      []string `json:"images"`
	ImageBase64 string   `json:"image_base64"`
}

type sdxlRequest struct {
	TextPrompts []sdxlPrompt `json:"text_prompts"`
	CfgScale    int          `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
}

type sdxlPrompt struct {
	Text string `json:"text"`
}

type sdxlResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

// imageRequest builds the vendor payload for a text-to-image call.
func imageRequest(p config.ImageProvider, prompt string) ([]byte, error) {
	switch p {
	case config.ProviderTitanImage:
		var req titanRequest
		req.TaskType = "TEXT_IMAGE"
		req.TextToImageParams.Text = prompt
		req.ImageGenerationConfig.NumberOfImages = 1
		req.ImageGenerationConfig.Quality = "standard"
		req.ImageGenerationConfig.Height = imageSize
		req.ImageGenerationConfig.Width = imageSize
		req.ImageGenerationConfig.CfgScale = cfgScale
		return json.Marshal(req)
	case config.ProviderStableDiffusion:
		return json.Marshal(sdxlRequest{
			TextPrompts: []sdxlPrompt{{Text: prompt}},
			CfgScale:    cfgScale,
			Height:      imageSize,
			Width:       imageSize,
			Samples:     1,
			Steps:       sdxlSteps,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVendor, p)
	}
}

// imageBytes extracts and decodes the first base64 image from a vendor response.
func imageBytes(p config.ImageProvider, body []byte) ([]byte, error) {
	var encoded string
	switch p {
	case config.ProviderTitanImage:
		var resp titanResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode titan response: %w", err)
		}
		if len(resp.Images) > 0 && resp.Images[0] != "" {
			encoded = resp.Images[0]
		} else {
			encoded = resp.ImageBase64
		}
	case config.ProviderStableDiffusion:
		var resp sdxlResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode sdxl response: %w", err)
		}
		if len(resp.Artifacts) > 0 {
			encoded = resp.Artifacts[0].Base64
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVendor, p)
	}

	if encoded == "" {
		return nil, ErrNoImageOutput
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image base64: %w", err)
	}
	return raw, nil
}
