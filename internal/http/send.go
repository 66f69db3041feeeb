package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/citymesh/message-gateway/internal/delivery"
	"github.com/citymesh/message-gateway/internal/model"
)

// optionsFrom builds delivery options out of provenance headers and the async
// flag. Municipality id is mandatory for every send.
func optionsFrom(c echo.Context) (delivery.Options, error) {
	opt := delivery.Options{
		MunicipalityID: strings.TrimSpace(c.Request().Header.Get("X-Municipality-ID")),
		Origin:         strings.TrimSpace(c.Request().Header.Get("X-Origin")),
		Issuer:         strings.TrimSpace(c.Request().Header.Get("X-Issuer")),
		Async:          c.QueryParam("async") == "true",
	}
	if opt.MunicipalityID == "" {
		return opt, errors.New("missing X-Municipality-ID header")
	}
	return opt, nil
}

func respondSingle(c echo.Context, res model.DeliveryResult) error {
	c.Response().Header().Set("Location", "/v1/status/messages/"+res.MessageID)
	return c.JSON(http.StatusCreated, res)
}

func respondBatch(c echo.Context, res model.BatchResult) error {
	c.Response().Header().Set("Location", "/v1/status/batches/"+res.BatchID)
	return c.JSON(http.StatusCreated, res)
}

func sendError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, delivery.ErrInvalidRecipient), errors.Is(err, delivery.ErrEmptyBatch):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Errorf("send failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delivery error"})
	}
}

// ---- per-channel request shapes ----

type smsReq struct {
	Sender      string `json:"sender"`
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

func sendSMSHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req smsReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if strings.TrimSpace(req.Message) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty message"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		res, err := router.Send(c.Request().Context(), delivery.Request{
			Type: model.TypeSMS,
			Content: model.SMSContent{
				Sender:    req.Sender,
				Recipient: req.PhoneNumber,
				Body:      req.Message,
			},
		}, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondSingle(c, res)
	}
}

type emailReq struct {
	SenderName    string             `json:"sender_name"`
	SenderAddress string             `json:"sender_address"`
	EmailAddress  string             `json:"email_address"`
	Subject       string             `json:"subject"`
	Message       string             `json:"message"`
	Attachments   []model.Attachment `json:"attachments"`
}

func sendEmailHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req emailReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		res, err := router.Send(c.Request().Context(), delivery.Request{
			Type: model.TypeEmail,
			Content: model.EmailContent{
				SenderName:    req.SenderName,
				SenderAddress: req.SenderAddress,
				Recipient:     req.EmailAddress,
				Subject:       req.Subject,
				Body:          req.Message,
				Attachments:   req.Attachments,
			},
		}, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondSingle(c, res)
	}
}

type digitalMailReq struct {
	PartyIDs    []string           `json:"party_ids"`
	Subject     string             `json:"subject"`
	Body        string             `json:"body"`
	ContentType string             `json:"content_type"`
	Attachments []model.Attachment `json:"attachments"`
}

func sendDigitalMailHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req digitalMailReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		reqs := make([]delivery.Request, 0, len(req.PartyIDs))
		for _, partyID := range req.PartyIDs {
			reqs = append(reqs, delivery.Request{
				Type:  model.TypeDigitalMail,
				Party: partyID,
				Content: model.DigitalMailContent{
					PartyID:     partyID,
					Subject:     req.Subject,
					Body:        req.Body,
					ContentType: req.ContentType,
					Attachments: req.Attachments,
				},
			})
		}
		res, err := router.SendBatch(c.Request().Context(), reqs, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondBatch(c, res)
	}
}

type webMessageReq struct {
	PartyID     string             `json:"party_id"`
	Subject     string             `json:"subject"`
	Message     string             `json:"message"`
	Attachments []model.Attachment `json:"attachments"`
}

func sendWebMessageHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req webMessageReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		res, err := router.Send(c.Request().Context(), delivery.Request{
			Type:  model.TypeWebMessage,
			Party: req.PartyID,
			Content: model.WebMessageContent{
				PartyID:     req.PartyID,
				Subject:     req.Subject,
				Body:        req.Message,
				Attachments: req.Attachments,
			},
		}, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondSingle(c, res)
	}
}

type snailMailReq struct {
	PartyID     string             `json:"party_id"`
	Department  string             `json:"department"`
	ContentType string             `json:"content_type"`
	Attachments []model.Attachment `json:"attachments"`
}

func sendSnailMailHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req snailMailReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		res, err := router.Send(c.Request().Context(), delivery.Request{
			Type:  model.TypeSnailMail,
			Party: req.PartyID,
			Content: model.SnailMailContent{
				PartyID:     req.PartyID,
				Department:  req.Department,
				ContentType: req.ContentType,
				Attachments: req.Attachments,
			},
		}, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondSingle(c, res)
	}
}

type letterReq struct {
	PartyIDs    []string           `json:"party_ids"`
	Subject     string             `json:"subject"`
	Body        string             `json:"body"`
	ContentType string             `json:"content_type"`
	Attachments []model.Attachment `json:"attachments"`
}

func sendLetterHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req letterReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		reqs := make([]delivery.Request, 0, len(req.PartyIDs))
		for _, partyID := range req.PartyIDs {
			reqs = append(reqs, delivery.Request{
				Type:  model.TypeLetter,
				Party: partyID,
				Content: model.LetterContent{
					PartyID:     partyID,
					Subject:     req.Subject,
					Body:        req.Body,
					ContentType: req.ContentType,
					Attachments: req.Attachments,
				},
			})
		}
		res, err := router.SendBatch(c.Request().Context(), reqs, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondBatch(c, res)
	}
}

type slackReq struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

func sendSlackHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req slackReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		res, err := router.Send(c.Request().Context(), delivery.Request{
			Type: model.TypeSlack,
			Content: model.SlackContent{
				Channel: req.Channel,
				Body:    req.Message,
			},
		}, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondSingle(c, res)
	}
}

type digitalInvoiceReq struct {
	PartyID   string             `json:"party_id"`
	Subject   string             `json:"subject"`
	Reference string             `json:"reference"`
	Files     []model.Attachment `json:"files"`
}

func sendDigitalInvoiceHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req digitalInvoiceReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		res, err := router.Send(c.Request().Context(), delivery.Request{
			Type:  model.TypeDigitalInvoice,
			Party: req.PartyID,
			Content: model.DigitalInvoiceContent{
				PartyID:   req.PartyID,
				Subject:   req.Subject,
				Reference: req.Reference,
				Files:     req.Files,
			},
		}, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondSingle(c, res)
	}
}

type messageReq struct {
	Messages []struct {
		PartyID string `json:"party_id"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	} `json:"messages"`
	SenderName    string `json:"sender_name"`
	SenderAddress string `json:"sender_address"`
}

// sendMessageHandler accepts generic messages whose channel is resolved from
// each recipient's contact settings at delivery time.
func sendMessageHandler(router *delivery.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req messageReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		opt, err := optionsFrom(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		reqs := make([]delivery.Request, 0, len(req.Messages))
		for _, m := range req.Messages {
			reqs = append(reqs, delivery.Request{
				Type:  model.TypeMessage,
				Party: m.PartyID,
				Content: model.MessageContent{
					PartyID:       m.PartyID,
					Subject:       m.Subject,
					Body:          m.Message,
					SenderName:    req.SenderName,
					SenderAddress: req.SenderAddress,
				},
			})
		}

		if len(reqs) == 1 {
			res, err := router.Send(c.Request().Context(), reqs[0], opt)
			if err != nil {
				return sendError(c, err)
			}
			return respondSingle(c, res)
		}

		res, err := router.SendBatch(c.Request().Context(), reqs, opt)
		if err != nil {
			return sendError(c, err)
		}
		return respondBatch(c, res)
	}
}
