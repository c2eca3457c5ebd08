// Package stt wraps the external speech-to-text service. One network call per
// chunk; a failure means "no new transcript for this chunk", never a session
// abort.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/airwin/platform/internal/errors"
	"github.com/airwin/platform/internal/trace"
)

// Client posts audio files for transcription.
type Client struct {
	url     string
	apiKey  string
	model   string
	httpCli *http.Client
}

// New creates a transcription client with a fixed call timeout.
func New(url, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		httpCli: &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads one audio file and returns its transcript text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "transcribe_chunk")
	defer span.End()
	span.SetAttr("file", filepath.Base(audioPath))

	f, err := os.Open(audioPath)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.TranscribeFailed, "open chunk")
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.TranscribeFailed, "multipart")
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", apperrors.Wrap(err, apperrors.TranscribeFailed, "read chunk")
	}
	_ = w.WriteField("model", c.model)
	_ = w.WriteField("language", "en")
	if err := w.Close(); err != nil {
		return "", apperrors.Wrap(err, apperrors.TranscribeFailed, "multipart close")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.TranscribeFailed, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Timeout, "stt call")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", apperrors.Newf(apperrors.TranscribeFailed, "stt status %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.Wrap(err, apperrors.TranscribeFailed, "decode response")
	}

	span.SetAttr("chars", len(out.Text))
	return out.Text, nil
}
