package capture

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kanjo-app/kanjo/internal/scanning"
)

// maxImageBytes caps a capture at 10 MB before it is sent anywhere.
const maxImageBytes = 10 << 20

// allowedTypes is the set of MIME types a session accepts from the
// capture surface. Anything else (PDFs, HEIC) must be normalized before
// it reaches the session; see ReadFile.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// State is one step of the capture workflow.
type State int

const (
	StateIdle State = iota
	StateCapture
	StateProcessing
	StateConfirm
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapture:
		return "capture"
	case StateProcessing:
		return "processing"
	case StateConfirm:
		return "confirm"
	case StateSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// StateError reports an operation attempted in the wrong workflow step.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in %s state", e.Op, e.State)
}

// ValidationError reports a capture that was rejected before leaving the
// device.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid capture: " + e.Reason
}

// Client is the scan backend a session talks to. *scanning.Remote
// satisfies it.
type Client interface {
	Scan(ctx context.Context, imageData []byte, contentType string, ledgerID string) (*scanning.ScanResponse, error)
	Confirm(ctx context.Context, scanID string, req scanning.ConfirmRequest) (*scanning.ConfirmResponse, error)
}

// ReceiptSink is told when a confirmed receipt lands on a ledger.
type ReceiptSink interface {
	ReceiptAdded(receiptID, ledgerID string)
}

// Session drives one receipt through capture, scan, confirm and success.
// The zero value is not usable; use NewSession. Sessions are not safe for
// concurrent use.
type Session struct {
	client     Client
	camera     Camera
	sink       ReceiptSink
	ledgerID   string
	cameraMode bool

	state       State
	image       []byte
	contentType string

	scanID     string
	original   *scanning.ExtractedData
	edited     *scanning.ExtractedData
	confidence float64
	ocrText    string
	testMode   bool

	receiptID string
}

// Option configures a Session.
type Option func(*Session)

// WithCamera attaches a live camera; the session acquires it while in the
// capture step and releases it everywhere else.
func WithCamera(c Camera) Option {
	return func(s *Session) {
		s.camera = c
		s.cameraMode = true
	}
}

// WithSink attaches a listener for confirmed receipts.
func WithSink(sink ReceiptSink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// NewSession creates a session that will confirm receipts onto the given
// ledger.
func NewSession(client Client, ledgerID string, opts ...Option) *Session {
	s := &Session{
		client:   client,
		camera:   NopCamera{},
		ledgerID: ledgerID,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current workflow step.
func (s *Session) State() State {
	return s.state
}

// Begin moves the session into the capture step, acquiring the camera in
// camera mode.
func (s *Session) Begin() error {
	if s.state != StateIdle {
		return &StateError{Op: "begin", State: s.state}
	}
	if s.cameraMode {
		if err := s.camera.Acquire(); err != nil {
			return fmt.Errorf("acquiring camera: %w", err)
		}
	}
	s.state = StateCapture
	return nil
}

// Capture accepts an image from the capture surface. A rejected image
// leaves the session in the capture step so the user can try again; an
// accepted one releases the camera and moves to processing.
func (s *Session) Capture(image []byte, contentType string) error {
	if s.state != StateCapture {
		return &StateError{Op: "capture", State: s.state}
	}
	if len(image) == 0 {
		return &ValidationError{Reason: "empty image"}
	}
	if len(image) > maxImageBytes {
		return &ValidationError{Reason: "image exceeds 10 MB"}
	}
	if !allowedTypes[contentType] {
		return &ValidationError{Reason: "unsupported image type " + contentType}
	}

	s.image = image
	s.contentType = contentType
	s.camera.Release()
	s.state = StateProcessing
	return nil
}

// Process sends the captured image to the scan backend. On success the
// session holds the extraction twice: the original for the correction
// diff and an editable copy for the user. Any failure discards the image
// and returns to the capture step.
func (s *Session) Process(ctx context.Context) error {
	if s.state != StateProcessing {
		return &StateError{Op: "process", State: s.state}
	}

	resp, err := s.client.Scan(ctx, s.image, s.contentType, s.ledgerID)
	if err != nil {
		slog.Error("Scan request failed", "ledger_id", s.ledgerID, "error", err)
		s.backToCapture()
		return err
	}
	if !resp.Success {
		s.backToCapture()
		return &scanning.ScanFailedError{Message: resp.Error}
	}

	s.scanID = resp.ScanID
	s.original = resp.ExtractedData
	s.edited = resp.ExtractedData.Clone()
	s.confidence = resp.ConfidenceScore
	s.ocrText = resp.OCRText
	s.testMode = resp.IsTestMode
	s.image = nil
	s.state = StateConfirm
	return nil
}

// Original returns the extraction as the scanner proposed it.
func (s *Session) Original() *scanning.ExtractedData {
	return s.original
}

// Edited returns the working copy of the extraction. Callers mutate it in
// place while in the confirm step.
func (s *Session) Edited() *scanning.ExtractedData {
	return s.edited
}

// Confidence returns the weighted field confidence of the extraction.
func (s *Session) Confidence() float64 {
	return s.confidence
}

// Tier buckets the confidence for display.
func (s *Session) Tier() scanning.Tier {
	return scanning.TierOf(s.confidence)
}

// OCRText returns the raw recognized text.
func (s *Session) OCRText() string {
	return s.ocrText
}

// TestMode reports whether the extraction came from a stubbed scanner.
func (s *Session) TestMode() bool {
	return s.testMode
}

// Confirm submits the edited extraction. The total amount is mandatory;
// without it the session stays in the confirm step. A rejected or failed
// confirmation keeps the edited data so nothing the user typed is lost.
func (s *Session) Confirm(ctx context.Context) error {
	if s.state != StateConfirm {
		return &StateError{Op: "confirm", State: s.state}
	}
	if s.edited == nil || s.edited.TotalAmount == nil {
		return &ValidationError{Reason: "total amount is required"}
	}

	req := scanning.ConfirmRequest{
		ConfirmedData:     s.edited,
		ManualCorrections: scanning.Corrections(s.original, s.edited),
		LedgerID:          s.ledgerID,
	}
	resp, err := s.client.Confirm(ctx, s.scanID, req)
	if err != nil {
		slog.Error("Confirm request failed", "scan_id", s.scanID, "error", err)
		return err
	}
	if !resp.Success {
		return &scanning.ConfirmFailedError{Message: resp.Message}
	}

	s.receiptID = resp.ReceiptID
	s.state = StateSuccess
	if s.sink != nil {
		s.sink.ReceiptAdded(resp.ReceiptID, resp.LedgerID)
	}
	return nil
}

// ReceiptID returns the ID of the confirmed receipt.
func (s *Session) ReceiptID() string {
	return s.receiptID
}

// Retry abandons the current extraction and returns to the capture step
// for another shot.
func (s *Session) Retry() error {
	if s.state != StateConfirm {
		return &StateError{Op: "retry", State: s.state}
	}
	return s.backToCapture()
}

// Continue starts the next receipt after a successful confirmation.
func (s *Session) Continue() error {
	if s.state != StateSuccess {
		return &StateError{Op: "continue", State: s.state}
	}
	return s.backToCapture()
}

// Close releases the camera. Safe to call in any state.
func (s *Session) Close() {
	s.camera.Release()
	s.state = StateIdle
}

// backToCapture resets per-receipt data and re-acquires the camera in
// camera mode.
func (s *Session) backToCapture() error {
	s.image = nil
	s.contentType = ""
	s.scanID = ""
	s.original = nil
	s.edited = nil
	s.confidence = 0
	s.ocrText = ""
	s.testMode = false
	s.receiptID = ""
	if s.cameraMode {
		if err := s.camera.Acquire(); err != nil {
			s.state = StateIdle
			return fmt.Errorf("acquiring camera: %w", err)
		}
	}
	s.state = StateCapture
	return nil
}
