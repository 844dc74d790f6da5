package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
	"github.com/insightdelivered/rmc-recalc/internal/engine"
	"github.com/insightdelivered/rmc-recalc/internal/extractor"
	"github.com/insightdelivered/rmc-recalc/internal/input"
	"github.com/insightdelivered/rmc-recalc/internal/parser"
	"github.com/insightdelivered/rmc-recalc/internal/rates"
	"github.com/insightdelivered/rmc-recalc/internal/service"
	"github.com/insightdelivered/rmc-recalc/internal/writer"
)

// extractTimeout bounds PDF and OCR work for one upload.
const extractTimeout = 2 * time.Minute

var uploadExts = map[string]bool{
	".pdf": true, ".txt": true, ".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	svc       service.Service
	logger    *zap.Logger
	version   string
	StaticDir string
}

// NewHandler returns a Handler. A nil logger is replaced with a no-op one.
func NewHandler(svc service.Service, logger *zap.Logger, version string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger, version: version}
}

// NewApp returns a fiber app with the API routes registered.
func NewApp(h *Handler, bodyLimit int) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", h.HandleHealth)
	api.Post("/extract", h.HandleExtract)
	api.Post("/calculate", h.HandleCalculate)
	api.Post("/report", h.HandleReport)
	api.Get("/rate", h.HandleRate)

	// Serve the web client, falling back to index.html for SPA routes.
	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			return c.SendFile(filepath.Join(h.StaticDir, "index.html"))
		})
	}
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.version,
		"engine":  "fiber",
		"ocr":     fmt.Sprint(extractor.IsOCRAvailable()),
	})
}

// HandleExtract accepts a statement as a multipart "file" upload or as a
// "text" form field holding text already extracted by the client.
func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), extractTimeout)
	defer cancel()

	var (
		res *service.ExtractResult
		err error
	)
	if text := c.FormValue("text"); strings.TrimSpace(text) != "" {
		res, err = h.svc.Extract(ctx, text)
	} else {
		fh, ferr := c.FormFile("file")
		if ferr != nil {
			return h.fail(c, fiber.StatusBadRequest, "No statement uploaded. Use form field 'file' or 'text'.", nil)
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !uploadExts[ext] {
			return h.fail(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported file type %q.", ext), nil)
		}

		tmp, terr := os.CreateTemp("", "statement-*"+ext)
		if terr != nil {
			return h.fail(c, fiber.StatusInternalServerError, "Failed to create temp file.", nil)
		}
		tmpPath := tmp.Name()
		tmp.Close()
		defer os.Remove(tmpPath)

		if serr := c.SaveFile(fh, tmpPath); serr != nil {
			return h.fail(c, fiber.StatusInternalServerError, "Failed to save uploaded file.", nil)
		}
		res, err = h.svc.ExtractFile(ctx, tmpPath)
	}

	if err != nil {
		return h.fail(c, errorStatus(err), "Extraction failed.", res, err.Error())
	}
	return h.success(c, res, fmt.Sprintf("%d payment(s) found", len(res.Records)))
}

func (h *Handler) HandleCalculate(c *fiber.Ctx) error {
	var req service.CalculateRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "Invalid request body.", nil, err.Error())
	}

	res, err := h.svc.Calculate(req)
	if err != nil {
		return h.fail(c, errorStatus(err), "Calculation failed.", nil, err.Error())
	}
	return h.success(c, res, "")
}

// HandleReport returns the report as JSON, CSV or XLSX according to the
// request's format field.
func (h *Handler) HandleReport(c *fiber.Ctx) error {
	var req service.ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "Invalid request body.", nil, err.Error())
	}

	r, err := h.svc.Report(req)
	if err != nil {
		return h.fail(c, errorStatus(err), "Report failed.", nil, err.Error())
	}

	var buf bytes.Buffer
	switch strings.ToLower(req.Format) {
	case "", "json":
		return h.success(c, r, "")
	case "csv":
		charset, legacy, ok := csvCharset(req.Encoding)
		if !ok {
			return h.fail(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown encoding %q. Use utf-8 or windows-1252.", req.Encoding), nil)
		}
		if err := (&writer.CSVWriter{IncludeHeader: true, Windows1252: legacy}).Write(&buf, r); err != nil {
			return h.fail(c, fiber.StatusInternalServerError, "CSV generation failed.", nil, err.Error())
		}
		c.Attachment("recalculo-" + r.ID + ".csv")
		c.Set(fiber.HeaderContentType, "text/csv; charset="+charset)
	case "xlsx":
		if err := (&writer.XLSXWriter{}).Write(&buf, r); err != nil {
			return h.fail(c, fiber.StatusInternalServerError, "XLSX generation failed.", nil, err.Error())
		}
		c.Attachment("recalculo-" + r.ID + ".xlsx")
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		return h.fail(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown format %q. Use json, csv or xlsx.", req.Format), nil)
	}
	return c.Send(buf.Bytes())
}

// csvCharset maps a requested CSV encoding to its charset label and
// whether the Windows-1252 encoder is needed.
func csvCharset(enc string) (charset string, legacy bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf-8", "utf8":
		return "utf-8", false, true
	case "windows-1252", "cp1252", "latin1":
		return "windows-1252", true, true
	}
	return "", false, false
}

// HandleRate looks up the reference monthly rate for ?date=.
func (h *Handler) HandleRate(c *fiber.Ctx) error {
	raw := c.Query("date")
	if raw == "" {
		return h.fail(c, fiber.StatusBadRequest, "Query parameter 'date' is required.", nil)
	}
	date, err := brl.ParseMonth(raw)
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, "Invalid date.", nil, err.Error())
	}

	rate, err := h.svc.LookupRate(c.UserContext(), date)
	if err != nil {
		return h.fail(c, errorStatus(err), "Rate lookup failed; enter the rate manually.", nil, err.Error())
	}
	return h.success(c, fiber.Map{"month": brl.FormatMonth(date), "rate": rate}, "")
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, input.ErrInvalidContractInput),
		errors.Is(err, input.ErrInvalidPaymentInput),
		errors.Is(err, engine.ErrInvalidContract),
		errors.Is(err, engine.ErrNoPayments),
		errors.Is(err, parser.ErrNoRecordsFound),
		errors.Is(err, extractor.ErrNoText):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, extractor.ErrUnsupportedFile):
		return fiber.StatusBadRequest
	case errors.Is(err, rates.ErrRateNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrRatesDisabled):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}
