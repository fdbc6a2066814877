package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"capture-bridge/internal/application"
	"capture-bridge/internal/domain"
	"capture-bridge/internal/infrastructure/streaming"
	"capture-bridge/internal/infrastructure/texture"
	"capture-bridge/internal/platform/metrics"
)

// Method names of the method channel.
const (
	MethodInitializeTexture = "initializeTexture"
	MethodDisposeTexture    = "disposeTexture"
	MethodInputsFromType    = "inputsFromType"
	MethodCreateAudioSource = "createAudioSource"
	MethodCreateVideoSource = "createVideoSource"
	MethodRemoveSource      = "removeSource"
)

// Error codes returned in Response.Error.
const (
	CodeInvalidArguments  = "invalid_arguments"
	CodeUnknownMethod     = "unknown_method"
	CodeUnknownTexture    = "unknown_texture"
	CodeDeviceUnavailable = "device_unavailable"
	CodeInternal          = "internal"
)

// Request is one method call.
type Request struct {
	ID        json.RawMessage `json:"id"`
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response answers a Request with the same id.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result interface{}     `json:"result"`
	Error  *Error          `json:"error,omitempty"`
}

// Error describes a failed call.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Input is one entry of an inputsFromType result.
type Input struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TypeID string `json:"typeId"`
}

// arguments carries every argument key understood by the methods. The
// device_uique_id spelling is what existing clients send.
type arguments struct {
	TypeID         string `json:"typeId"`
	DeviceUiqueID  string `json:"device_uique_id"`
	DeviceUniqueID string `json:"device_unique_id"`
	TextureID      *int64 `json:"texture_id"`
	TextureIDCamel *int64 `json:"textureId"`
	FastPath       bool   `json:"fast_path"`
	SourceID       string `json:"source_id"`
}

func (a arguments) deviceID() string {
	if a.DeviceUiqueID != "" {
		return a.DeviceUiqueID
	}
	return a.DeviceUniqueID
}

func (a arguments) textureID() (int64, bool) {
	switch {
	case a.TextureID != nil:
		return *a.TextureID, true
	case a.TextureIDCamel != nil:
		return *a.TextureIDCamel, true
	}
	return 0, false
}

// Handler serves the method channel and the frame and device endpoints.
type Handler struct {
	controller *application.CaptureController
	textures   *texture.Registry
	hub        *streaming.Hub
	log        *slog.Logger
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
}

// NewHandler returns a Handler. Metrics may be nil.
func NewHandler(controller *application.CaptureController, textures *texture.Registry, hub *streaming.Hub, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		controller: controller,
		textures:   textures,
		hub:        hub,
		log:        log,
		metrics:    m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes mounts the handler endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ws", h.ServeWS)
	r.Get("/inputs/{kind}", h.ListInputs)
	r.Get("/sources", h.ListSources)
	r.Get("/textures/{texture_id}", h.GetTexture)
}

// ServeWS upgrades to a websocket that carries method calls from the client
// and callback events to it.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := h.hub.Attach(conn)
	defer client.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Info("websocket read failed", slog.String("client", client.ID()), slog.String("error", err.Error()))
			}
			return
		}

		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			h.log.Debug("invalid method call", slog.String("error", err.Error()))
			client.Send(Response{Error: &Error{Code: CodeInvalidArguments, Message: "malformed request"}})
			continue
		}

		if err := client.Send(h.Dispatch(req)); err != nil {
			return
		}
	}
}

// Dispatch runs one method call.
func (h *Handler) Dispatch(req Request) Response {
	resp := Response{ID: req.ID}
	if h.metrics != nil {
		h.metrics.IncRPCRequests(req.Method)
	}

	var args arguments
	if len(req.Arguments) > 0 && string(req.Arguments) != "null" {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return h.fail(req, resp, CodeInvalidArguments, err.Error())
		}
	}

	switch req.Method {
	case MethodInitializeTexture:
		resp.Result = h.textures.Register()

	case MethodDisposeTexture:
		id, ok := args.textureID()
		resp.Result = ok && h.textures.Dispose(id)

	case MethodInputsFromType:
		kind, ok := domain.ParseMediaKind(args.TypeID)
		if !ok {
			resp.Result = []Input{}
			break
		}
		devices, err := h.controller.ListInputs(kind)
		if err != nil {
			return h.fail(req, resp, CodeInternal, err.Error())
		}
		inputs := make([]Input, 0, len(devices))
		for _, d := range devices {
			inputs = append(inputs, Input{ID: d.UniqueID, Name: d.DisplayName, TypeID: args.TypeID})
		}
		resp.Result = inputs

	case MethodCreateVideoSource:
		var sink application.FrameSink = discardFrames{}
		if id, ok := args.textureID(); ok {
			p, found := h.textures.Provider(id)
			if !found {
				return h.fail(req, resp, CodeUnknownTexture, "texture "+strconv.FormatInt(id, 10)+" is not registered")
			}
			sink = p
		}
		if h.metrics != nil {
			sink = countingFrames{next: sink, m: h.metrics}
		}
		id, err := h.controller.CreateVideoSource(args.deviceID(), sink, application.WithFastPath(args.FastPath))
		if err != nil {
			return h.fail(req, resp, codeFor(err), err.Error())
		}
		resp.Result = id

	case MethodCreateAudioSource:
		var sink application.LevelSink = h.hub
		if h.metrics != nil {
			sink = countingLevels{next: sink, m: h.metrics}
		}
		id, err := h.controller.CreateAudioSource(args.deviceID(), sink)
		if err != nil {
			return h.fail(req, resp, codeFor(err), err.Error())
		}
		resp.Result = id

	case MethodRemoveSource:
		resp.Result = args.SourceID != "" && h.controller.RemoveSource(args.SourceID)

	default:
		return h.fail(req, resp, CodeUnknownMethod, "method "+req.Method+" is not implemented")
	}

	h.log.Debug("method call", slog.String("method", req.Method))
	return resp
}

func (h *Handler) fail(req Request, resp Response, code, msg string) Response {
	if h.metrics != nil {
		h.metrics.IncRPCErrors(req.Method)
	}
	h.log.Info("method call failed",
		slog.String("method", req.Method),
		slog.String("code", code),
		slog.String("error", msg))
	resp.Error = &Error{Code: code, Message: msg}
	return resp
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters):
		return CodeInvalidArguments
	case errors.Is(err, domain.ErrDeviceUnavailable):
		return CodeDeviceUnavailable
	default:
		return CodeInternal
	}
}

// ListInputs handles GET /inputs/{kind}.
func (h *Handler) ListInputs(w http.ResponseWriter, r *http.Request) {
	typeID := chi.URLParam(r, "kind")
	kind, ok := domain.ParseMediaKind(typeID)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	devices, err := h.controller.ListInputs(kind)
	if err != nil {
		h.log.Error("list inputs failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	inputs := make([]Input, 0, len(devices))
	for _, d := range devices {
		inputs = append(inputs, Input{ID: d.UniqueID, Name: d.DisplayName, TypeID: typeID})
	}
	writeJSON(w, inputs)
}

// ListSources handles GET /sources.
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	type source struct {
		ID              string `json:"id"`
		State           string `json:"state"`
		DeviceUniqueID  string `json:"device_unique_id"`
		FastPath        bool   `json:"fast_path"`
		FramesDelivered uint64 `json:"frames_delivered"`
		FramesDropped   uint64 `json:"frames_dropped"`
		AudioBuffers    uint64 `json:"audio_buffers"`
		AudioDropped    uint64 `json:"audio_dropped"`
	}

	stats := h.controller.Stats()
	out := make([]source, 0, len(stats))
	for _, st := range stats {
		out = append(out, source{
			ID:              st.ID,
			State:           st.State.String(),
			DeviceUniqueID:  st.DeviceUniqueID,
			FastPath:        st.FastPath,
			FramesDelivered: st.FramesDelivered,
			FramesDropped:   st.FramesDropped,
			AudioBuffers:    st.AudioBuffers,
			AudioDropped:    st.AudioDropped,
		})
	}
	writeJSON(w, out)
}

// GetTexture handles GET /textures/{texture_id}. It returns the raw bytes of
// the latest frame, or 204 when none is available.
func (h *Handler) GetTexture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "texture_id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, ok := h.textures.Provider(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	snap, ok := p.CopyPixelBuffer()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Frame-Width", strconv.FormatUint(uint64(snap.Width), 10))
	w.Header().Set("X-Frame-Height", strconv.FormatUint(uint64(snap.Height), 10))
	w.Header().Set("X-Frame-Format", snap.Format.String())
	w.Header().Set("X-Frame-Line-Size", strconv.Itoa(snap.LineSize))
	w.Header().Set("X-Frame-Timestamp", strconv.FormatUint(snap.TimestampNanos, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(snap.Data); err != nil {
		h.log.Debug("texture write failed", slog.String("error", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

type discardFrames struct{}

func (discardFrames) OnVideoFrame(*domain.VideoFrame) {}

type countingFrames struct {
	next application.FrameSink
	m    *metrics.Metrics
}

func (c countingFrames) OnVideoFrame(frame *domain.VideoFrame) {
	if frame != nil {
		c.m.IncFramesDelivered()
	}
	c.next.OnVideoFrame(frame)
}

type countingLevels struct {
	next application.LevelSink
	m    *metrics.Metrics
}

func (c countingLevels) OnAudioLevels(sourceID string, frame domain.AudioFrame) {
	c.m.IncAudioBuffers()
	c.next.OnAudioLevels(sourceID, frame)
}
