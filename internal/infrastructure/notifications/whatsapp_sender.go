package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/pkg/config"
	"github.com/zatekoja/clinicqueue/pkg/retry"
)

const (
	defaultWhatsAppBaseURL  = "https://graph.facebook.com/v18.0"
	defaultTemplateLanguage = "en_US"
)

// WhatsAppCloudSender sends messages via WhatsApp Cloud API
type WhatsAppCloudSender struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	baseURL       string
	template      string
	language      string
	retry         retry.Config
}

// NewWhatsAppCloudSender creates a new WhatsApp sender
func NewWhatsAppCloudSender(cfg *config.WhatsAppConfig) (*WhatsAppCloudSender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultWhatsAppBaseURL
	}
	language := cfg.TemplateLanguage
	if language == "" {
		language = defaultTemplateLanguage
	}

	return &WhatsAppCloudSender{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  baseURL,
		template: cfg.AssignmentTemplate,
		language: language,
		retry:    retry.DeliveryConfig(),
	}, nil
}

// Notify sends the assignment notice to patients who came in through WhatsApp, using the
// configured template when there is one. Other sources and patients without a contact
// number are skipped.
func (w *WhatsAppCloudSender) Notify(ctx context.Context, event *entities.AssignmentEvent) error {
	if event.Source != entities.SourceWhatsApp || event.Contact == "" {
		return nil
	}

	var messageID string
	var err error
	if w.template != "" {
		messageID, err = w.SendTemplate(ctx, event.Contact, w.template, w.language, []string{
			event.DoctorID,
			strconv.Itoa(event.EstimatedWaitMinutes),
		})
	} else {
		messageID, err = w.SendText(ctx, event.Contact, event.Message)
	}
	if err != nil {
		return fmt.Errorf("whatsapp notification for patient %s: %w", event.PatientID, err)
	}

	log.Debug().
		Str("patient_id", event.PatientID).
		Str("message_id", messageID).
		Msg("WhatsApp notification sent")
	return nil
}

// WhatsAppTemplateMessage represents a template message
type WhatsAppTemplateMessage struct {
	MessagingProduct string                      `json:"messaging_product"`
	RecipientType    string                      `json:"recipient_type"`
	To               string                      `json:"to"`
	Type             string                      `json:"type"`
	Template         WhatsAppTemplateMessageBody `json:"template"`
}

// WhatsAppTemplateMessageBody represents the template body
type WhatsAppTemplateMessageBody struct {
	Name       string                             `json:"name"`
	Language   WhatsAppLanguage                   `json:"language"`
	Components []WhatsAppTemplateMessageComponent `json:"components,omitempty"`
}

// WhatsAppLanguage represents the language code
type WhatsAppLanguage struct {
	Code string `json:"code"`
}

// WhatsAppTemplateMessageComponent represents a template component
type WhatsAppTemplateMessageComponent struct {
	Type       string                             `json:"type"`
	Parameters []WhatsAppTemplateMessageParameter `json:"parameters"`
}

// WhatsAppTemplateMessageParameter represents a template parameter
type WhatsAppTemplateMessageParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// WhatsAppTextMessage represents a text message
type WhatsAppTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

// WhatsAppResponse represents the API response
type WhatsAppResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendTemplate sends a template message
func (w *WhatsAppCloudSender) SendTemplate(ctx context.Context, to, templateName, languageCode string, parameters []string) (string, error) {
	// Build component parameters
	var components []WhatsAppTemplateMessageComponent
	if len(parameters) > 0 {
		params := make([]WhatsAppTemplateMessageParameter, len(parameters))
		for i, param := range parameters {
			params[i] = WhatsAppTemplateMessageParameter{
				Type: "text",
				Text: param,
			}
		}
		components = append(components, WhatsAppTemplateMessageComponent{
			Type:       "body",
			Parameters: params,
		})
	}

	message := WhatsAppTemplateMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "template",
		Template: WhatsAppTemplateMessageBody{
			Name:       templateName,
			Language:   WhatsAppLanguage{Code: languageCode},
			Components: components,
		},
	}

	return w.sendMessage(ctx, message)
}

// SendText sends a text message
func (w *WhatsAppCloudSender) SendText(ctx context.Context, to, body string) (string, error) {
	message := WhatsAppTextMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
	}
	message.Text.PreviewURL = false
	message.Text.Body = body

	return w.sendMessage(ctx, message)
}

// sendMessage posts a message to the Cloud API, retrying network failures, rate limits and
// server errors. Other 4xx responses are not retried.
func (w *WhatsAppCloudSender) sendMessage(ctx context.Context, message interface{}) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)

	jsonData, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	var messageID string
	err = retry.DoWithLog(ctx, w.retry, "WhatsApp", func() error {
		id, err := w.post(ctx, url, jsonData)
		if err != nil {
			return err
		}
		messageID = id
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", nextDelay).
			Msg("WhatsApp send failed")
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

func (w *WhatsAppCloudSender) post(ctx context.Context, url string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("WhatsApp API error (status %d): %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", apiErr
		}
		return "", retry.Permanent(apiErr)
	}

	var whatsappResp WhatsAppResponse
	if err := json.Unmarshal(body, &whatsappResp); err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if len(whatsappResp.Messages) > 0 {
		return whatsappResp.Messages[0].ID, nil
	}

	return "", retry.Permanent(fmt.Errorf("no message ID in response"))
}
