package layout

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/arie/internal/logger"
	"github.com/spigell/arie/internal/resume"
)

const (
	defaultDoclingURL     = "http://localhost:5001"
	defaultDoclingTimeout = 120 * time.Second
	doclingConvertPath    = "/v1/convert/file"
	contentEncoding       = "gzip"
	userAgent             = "spigell/arie"
)

// Docling detects regions through a docling-serve instance. OCR is disabled
// on the server side; recovering scanned text is the OCR fallback's job.
type Docling struct {
	logger     *zap.Logger
	apiKey     string
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func NewDocling(log *zap.Logger, apiURL, apiKey string, timeout time.Duration) *Docling {
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultDoclingURL
	}
	if timeout <= 0 {
		timeout = defaultDoclingTimeout
	}

	return &Docling{
		logger: logger.WithCommonFields(log, ProviderDocling, ""),
		apiKey: apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
		APIURL:    strings.TrimRight(apiURL, "/"),
	}
}

type convertResponse struct {
	Document struct {
		JSONContent *DoclingDocument `json:"json_content"`
	} `json:"document"`
	Status string          `json:"status"`
	Errors []convertErrMsg `json:"errors"`
}

type convertErrMsg struct {
	Component string `json:"component_type"`
	Module    string `json:"module_name"`
	Message   string `json:"error_message"`
}

func (d *Docling) Detect(ctx context.Context, path string) ([]resume.BoundingBox, error) {
	req, err := d.convertRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	var response convertResponse
	if err := d.doJSON(req, &response); err != nil {
		return nil, err
	}

	if response.Document.JSONContent == nil {
		if len(response.Errors) > 0 {
			return nil, fmt.Errorf("docling conversion %s: %s", response.Status, response.Errors[0].Message)
		}
		return nil, fmt.Errorf("docling conversion %s: no json content", response.Status)
	}

	boxes, err := response.Document.JSONContent.Boxes()
	if err != nil {
		return nil, err
	}

	d.logger.Debug("docling conversion finished",
		zap.String("status", response.Status),
		zap.Int("boxes", len(boxes)),
	)

	return boxes, nil
}

func (d *Docling) convertRequest(ctx context.Context, path string) (*http.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fields := map[string]string{
		"to_formats":        "json",
		"do_ocr":            "false",
		"image_export_mode": "placeholder",
	}
	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return nil, err
		}
	}

	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.APIURL+doclingConvertPath, &b)
	if err != nil {
		return nil, err
	}

	req = d.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return req, nil
}

func (d *Docling) doJSON(req *http.Request, target any) error {
	d.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return json.Unmarshal(data, target)
}

func (d *Docling) setHeaders(req *http.Request) *http.Request {
	if d.apiKey != "" {
		req.Header.Set("X-Api-Key", d.apiKey)
	}
	req.Header.Set("User-Agent", d.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
