package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/config"
)

const commandTimeout = 30 * time.Second

// Command represents a control plane command
type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response represents a command response
type Response struct {
	CommandAck string                 `json:"command_ack"`
	Status     string                 `json:"status"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// CommandCallbacks contains callback functions for commands.
// A nil callback answers its command with "<command> not implemented".
type CommandCallbacks struct {
	OnGetStatus func() map[string]interface{}

	// Camera and capture loop
	OnStartCamera  func(ctx context.Context) error
	OnStopCamera   func() error
	OnStartCapture func() error
	OnStopCapture  func() error
	OnCaptureOnce  func(ctx context.Context) error

	// Recognition session
	OnClearText      func() error
	OnRestoreHistory func(entry string) error
	OnCopyText       func() (bool, error)
	OnSetMode        func(ctx context.Context, mode string) error

	// Text to sign
	OnTranslate        func(ctx context.Context, text string) (map[string]interface{}, error)
	OnClearTranslation func() error

	// Training
	OnStartTraining func(gesture string) (map[string]interface{}, error)
	OnStopTraining  func() (map[string]interface{}, error)
	OnTrainModel    func(ctx context.Context) (string, error)
}

// Handler handles control plane commands
type Handler struct {
	cfg       config.MQTTConfig
	client    mqtt.Client
	commands  chan Command
	callbacks CommandCallbacks

	mu      sync.Mutex
	stopped bool
}

// NewHandler creates a new control plane handler
func NewHandler(cfg config.MQTTConfig, client mqtt.Client, callbacks CommandCallbacks) *Handler {
	return &Handler{
		cfg:       cfg,
		client:    client,
		commands:  make(chan Command, 10),
		callbacks: callbacks,
	}
}

// Start starts listening for control commands
func (h *Handler) Start(ctx context.Context) error {
	topic := h.cfg.Topics.Control
	qos := h.cfg.QoS["control"]

	slog.Info("control: subscribing to control plane", "topic", topic, "qos", qos)

	token := h.client.Subscribe(topic, qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control: subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control: subscription failed: %w", err)
	}

	slog.Info("control: handler started")

	go h.processCommands(ctx)

	return nil
}

// Stop stops the control plane handler
func (h *Handler) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	close(h.commands)
	h.mu.Unlock()

	if h.client != nil && h.client.IsConnected() {
		token := h.client.Unsubscribe(h.cfg.Topics.Control)
		token.WaitTimeout(2 * time.Second)
	}

	slog.Info("control: handler stopped")
	return nil
}

// messageHandler is called when a control message is received
func (h *Handler) messageHandler(client mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		slog.Error("control: failed to parse command", "error", err)
		h.sendResponse(Response{
			CommandAck: "unknown",
			Status:     "error",
			Error:      "invalid JSON",
		})
		return
	}

	slog.Info("control: command received", "command", cmd.Command)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	select {
	case h.commands <- cmd:
	default:
		slog.Warn("control: command queue full, dropping command", "command", cmd.Command)
	}
}

// processCommands processes commands from the queue
func (h *Handler) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-h.commands:
			if !ok {
				return
			}
			cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
			h.sendResponse(h.handleCommand(cmdCtx, cmd))
			cancel()
		}
	}
}

// handleCommand executes a command and builds its response
func (h *Handler) handleCommand(ctx context.Context, cmd Command) Response {
	resp := Response{CommandAck: cmd.Command}
	cb := h.callbacks

	switch cmd.Command {
	case "get_status":
		if cb.OnGetStatus == nil {
			return notImplemented(resp)
		}
		resp.Status = "success"
		resp.Data = cb.OnGetStatus()

	case "start_camera":
		if cb.OnStartCamera == nil {
			return notImplemented(resp)
		}
		resp = result(resp, cb.OnStartCamera(ctx), map[string]interface{}{"camera_active": true})

	case "stop_camera":
		if cb.OnStopCamera == nil {
			return notImplemented(resp)
		}
		resp = result(resp, cb.OnStopCamera(), map[string]interface{}{"camera_active": false})

	case "start_capture":
		if cb.OnStartCapture == nil {
			return notImplemented(resp)
		}
		resp = result(resp, cb.OnStartCapture(), map[string]interface{}{"capturing": true})

	case "stop_capture":
		if cb.OnStopCapture == nil {
			return notImplemented(resp)
		}
		resp = result(resp, cb.OnStopCapture(), map[string]interface{}{"capturing": false})

	case "capture_once":
		if cb.OnCaptureOnce == nil {
			return notImplemented(resp)
		}
		resp = result(resp, cb.OnCaptureOnce(ctx), nil)

	case "clear_text":
		if cb.OnClearText == nil {
			return notImplemented(resp)
		}
		resp = result(resp, cb.OnClearText(), map[string]interface{}{"text": ""})

	case "restore_history":
		if cb.OnRestoreHistory == nil {
			return notImplemented(resp)
		}
		entry, ok := cmd.Params["entry"].(string)
		if !ok {
			return invalidParam(resp, "missing or invalid 'entry' parameter (expected string)")
		}
		resp = result(resp, cb.OnRestoreHistory(entry), map[string]interface{}{"text": entry})

	case "copy_text":
		if cb.OnCopyText == nil {
			return notImplemented(resp)
		}
		copied, err := cb.OnCopyText()
		resp = result(resp, err, map[string]interface{}{"copied": copied})

	case "set_mode":
		if cb.OnSetMode == nil {
			return notImplemented(resp)
		}
		mode, ok := cmd.Params["mode"].(string)
		if !ok {
			return invalidParam(resp, "missing or invalid 'mode' parameter (expected string: static/dynamic)")
		}
		resp = result(resp, cb.OnSetMode(ctx, mode), map[string]interface{}{"mode": mode})

	case "translate":
		if cb.OnTranslate == nil {
			return notImplemented(resp)
		}
		text, ok := cmd.Params["text"].(string)
		if !ok {
			return invalidParam(resp, "missing or invalid 'text' parameter (expected string)")
		}
		data, err := cb.OnTranslate(ctx, text)
		resp = result(resp, err, data)

	case "clear_translation":
		if cb.OnClearTranslation == nil {
			return notImplemented(resp)
		}
		resp = result(resp, cb.OnClearTranslation(), nil)

	case "start_training":
		if cb.OnStartTraining == nil {
			return notImplemented(resp)
		}
		gesture, ok := cmd.Params["gesture"].(string)
		if !ok {
			return invalidParam(resp, "missing or invalid 'gesture' parameter (expected string)")
		}
		data, err := cb.OnStartTraining(gesture)
		resp = result(resp, err, data)

	case "stop_training":
		if cb.OnStopTraining == nil {
			return notImplemented(resp)
		}
		data, err := cb.OnStopTraining()
		resp = result(resp, err, data)

	case "train_model":
		if cb.OnTrainModel == nil {
			return notImplemented(resp)
		}
		msg, err := cb.OnTrainModel(ctx)
		resp = result(resp, err, map[string]interface{}{"message": msg})

	default:
		resp.Status = "error"
		resp.Error = fmt.Sprintf("unknown command: %s", cmd.Command)
	}

	return resp
}

func result(resp Response, err error, data map[string]interface{}) Response {
	if err != nil {
		resp.Status = "error"
		resp.Error = err.Error()
		return resp
	}
	resp.Status = "success"
	resp.Data = data
	return resp
}

func notImplemented(resp Response) Response {
	resp.Status = "error"
	resp.Error = resp.CommandAck + " not implemented"
	return resp
}

func invalidParam(resp Response, msg string) Response {
	resp.Status = "error"
	resp.Error = msg
	return resp
}

// sendResponse publishes a response on the responses topic
func (h *Handler) sendResponse(resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("control: failed to marshal response", "error", err)
		return
	}

	topic := h.cfg.Topics.Responses
	qos := h.cfg.QoS["responses"]

	token := h.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		slog.Error("control: response publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		slog.Error("control: failed to publish response", "error", err)
		return
	}

	slog.Debug("control: response sent", "command_ack", resp.CommandAck, "status", resp.Status)
}
