package rest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/config"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/observability"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/quant"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

// Handler provides HTTP handlers over the quantization codec
type Handler struct {
	codec   config.CodecConfig
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHandler creates a new REST API handler
func NewHandler(codec config.CodecConfig, logger *observability.Logger, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = observability.GetGlobalLogger()
	}
	return &Handler{
		codec:   codec,
		logger:  logger,
		metrics: metrics,
	}
}

// EncodeRequest is the request body for encode endpoints
type EncodeRequest struct {
	Kind      string    `json:"kind,omitempty"`
	Shape     []int     `json:"shape"`
	Data      []float64 `json:"data"`
	Extrema   *Extrema  `json:"extrema,omitempty"`
	RoundMode string    `json:"round_mode,omitempty"`
	FloatBits int       `json:"float_bits,omitempty"`
	Dim       *int      `json:"dim,omitempty"`
	Scheme    string    `json:"scheme,omitempty"`
}

// Extrema is an explicit encoding range
type Extrema struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// QuantizedPayload is the wire form of one quantized tensor. Min and
// Max are informational; the authoritative range is carried inside the
// binary payload and they are omitted when not finite (a log-encoded
// all-zero tensor has an infinite log range, which JSON cannot carry).
type QuantizedPayload struct {
	Kind    string   `json:"kind"`
	Shape   []int    `json:"shape"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Payload string   `json:"payload"`
}

// EncodeResponse is the response body for whole-tensor encode endpoints
type EncodeResponse struct {
	QuantizedPayload
	Elements int `json:"elements"`
}

// EncodeSlicesResponse is the response body for sliced encode
type EncodeSlicesResponse struct {
	Dim    int                `json:"dim"`
	Slices []QuantizedPayload `json:"slices"`
}

// DecodeRequest is the request body for decode endpoints
type DecodeRequest struct {
	Kind      string             `json:"kind,omitempty"`
	Shape     []int              `json:"shape,omitempty"`
	Payload   string             `json:"payload,omitempty"`
	Slices    []QuantizedPayload `json:"slices,omitempty"`
	FloatBits int                `json:"float_bits,omitempty"`
}

// DecodeResponse is the response body for decode endpoints
type DecodeResponse struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// HealthCheck handles GET /v1/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"kinds":  len(quant.Kinds()),
	}, http.StatusOK)
}

// KindDescriptor describes one supported target kind
type KindDescriptor struct {
	Name   string  `json:"name"`
	Bits   int     `json:"bits"`
	Signed bool    `json:"signed"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ListKinds handles GET /v1/kinds
func (h *Handler) ListKinds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := quant.Kinds()
	descriptors := make([]KindDescriptor, 0, len(names))
	for _, name := range names {
		k, err := quant.ParseKind(name)
		if err != nil {
			continue
		}
		descriptors = append(descriptors, KindDescriptor{
			Name:   k.String(),
			Bits:   k.Bits(),
			Signed: k.Signed(),
			Min:    k.TypeMin(),
			Max:    k.TypeMax(),
		})
	}

	writeJSON(w, map[string]interface{}{"kinds": descriptors}, http.StatusOK)
}

// EncodeLinear handles POST /v1/encode/linear
func (h *Handler) EncodeLinear(w http.ResponseWriter, r *http.Request) {
	req, kind, ok := h.readEncodeRequest(w, r)
	if !ok {
		return
	}

	var ext *quant.Extrema
	if req.Extrema != nil {
		ext = &quant.Extrema{Min: req.Extrema.Min, Max: req.Extrema.Max}
	}

	start := time.Now()
	var q *quant.Quantized
	var err error
	if req.FloatBits == 32 {
		q, err = encodeLinearAs[float32](kind, req.Data, req.Shape, ext)
	} else {
		q, err = encodeLinearAs[float64](kind, req.Data, req.Shape, ext)
	}
	if err != nil {
		h.writeCodecError(w, "linear", err)
		return
	}

	h.respondEncoded(w, "linear", q, time.Since(start))
}

// EncodeLog handles POST /v1/encode/log
func (h *Handler) EncodeLog(w http.ResponseWriter, r *http.Request) {
	req, kind, ok := h.readEncodeRequest(w, r)
	if !ok {
		return
	}

	mode, err := h.roundMode(req.RoundMode)
	if err != nil {
		h.writeCodecError(w, "log", err)
		return
	}

	start := time.Now()
	var q *quant.Quantized
	if req.FloatBits == 32 {
		q, err = encodeLogAs[float32](kind, req.Data, req.Shape, mode)
	} else {
		q, err = encodeLogAs[float64](kind, req.Data, req.Shape, mode)
	}
	if err != nil {
		h.writeCodecError(w, "log", err)
		return
	}

	h.respondEncoded(w, "log", q, time.Since(start))
}

// EncodeSlices handles POST /v1/encode/slices
func (h *Handler) EncodeSlices(w http.ResponseWriter, r *http.Request) {
	req, kind, ok := h.readEncodeRequest(w, r)
	if !ok {
		return
	}

	if req.Dim == nil {
		writeError(w, "Missing dim", http.StatusBadRequest)
		return
	}
	scheme := req.Scheme
	if scheme == "" {
		scheme = "linear"
	}
	if scheme != "linear" && scheme != "log" {
		writeError(w, fmt.Sprintf("Unknown scheme %q", scheme), http.StatusBadRequest)
		return
	}

	var ext *quant.Extrema
	if req.Extrema != nil {
		ext = &quant.Extrema{Min: req.Extrema.Min, Max: req.Extrema.Max}
	}
	mode, err := h.roundMode(req.RoundMode)
	if err != nil {
		h.writeCodecError(w, scheme, err)
		return
	}

	start := time.Now()
	var coll *quant.SliceCollection
	if req.FloatBits == 32 {
		coll, err = encodeSlicesAs[float32](kind, req.Data, req.Shape, *req.Dim, scheme, ext, mode)
	} else {
		coll, err = encodeSlicesAs[float64](kind, req.Data, req.Shape, *req.Dim, scheme, ext, mode)
	}
	if err != nil {
		h.writeCodecError(w, scheme, err)
		return
	}

	resp := EncodeSlicesResponse{Dim: *req.Dim, Slices: make([]QuantizedPayload, 0, coll.Len())}
	elements := 0
	for _, q := range coll.Slices {
		p, err := marshalPayload(q)
		if err != nil {
			writeError(w, fmt.Sprintf("Marshal failed: %v", err), http.StatusInternalServerError)
			return
		}
		resp.Slices = append(resp.Slices, p)
		elements += q.Len()
	}

	if h.metrics != nil {
		h.metrics.RecordEncode(scheme, kind.String(), elements, time.Since(start))
		h.metrics.RecordSliceCount(coll.Len())
		for _, q := range coll.Slices {
			h.metrics.RecordPayloadSize(wireSize(q))
		}
	}

	writeJSON(w, resp, http.StatusOK)
}

// DecodeLinear handles POST /v1/decode/linear
func (h *Handler) DecodeLinear(w http.ResponseWriter, r *http.Request) {
	h.decodeOne(w, r, "linear")
}

// DecodeLog handles POST /v1/decode/log
func (h *Handler) DecodeLog(w http.ResponseWriter, r *http.Request) {
	h.decodeOne(w, r, "log")
}

func (h *Handler) decodeOne(w http.ResponseWriter, r *http.Request, scheme string) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.FloatBits != 0 && req.FloatBits != 32 && req.FloatBits != 64 {
		writeError(w, fmt.Sprintf("Invalid float_bits %d (must be 32 or 64)", req.FloatBits), http.StatusBadRequest)
		return
	}

	start := time.Now()
	q, err := unmarshalPayload(QuantizedPayload{Kind: req.Kind, Shape: req.Shape, Payload: req.Payload})
	if err != nil {
		h.writeCodecError(w, scheme, err)
		return
	}

	data := decodeQuantized(q, scheme, req.FloatBits)

	if h.metrics != nil {
		h.metrics.RecordDecode(scheme, q.Kind().String(), q.Len(), time.Since(start))
	}

	writeJSON(w, DecodeResponse{Shape: q.Shape(), Data: data}, http.StatusOK)
}

// DecodeSlices handles POST /v1/decode/slices
func (h *Handler) DecodeSlices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.FloatBits != 0 && req.FloatBits != 32 && req.FloatBits != 64 {
		writeError(w, fmt.Sprintf("Invalid float_bits %d (must be 32 or 64)", req.FloatBits), http.StatusBadRequest)
		return
	}

	scheme := "linear"
	if s := r.URL.Query().Get("scheme"); s != "" {
		scheme = s
	}
	if scheme != "linear" && scheme != "log" {
		writeError(w, fmt.Sprintf("Unknown scheme %q", scheme), http.StatusBadRequest)
		return
	}

	start := time.Now()
	coll := &quant.SliceCollection{Slices: make([]*quant.Quantized, 0, len(req.Slices))}
	for _, p := range req.Slices {
		q, err := unmarshalPayload(p)
		if err != nil {
			h.writeCodecError(w, scheme, err)
			return
		}
		coll.Slices = append(coll.Slices, q)
	}

	var shape []int
	var data []float64
	var err error
	switch {
	case scheme == "log" && req.FloatBits == 32:
		shape, data, err = decodeCollectionAs(coll, quant.DecodeLogCollection[float32])
	case scheme == "log":
		shape, data, err = decodeCollectionAs(coll, quant.DecodeLogCollection[float64])
	case req.FloatBits == 32:
		shape, data, err = decodeCollectionAs(coll, quant.DecodeLinearCollection[float32])
	default:
		shape, data, err = decodeCollectionAs(coll, quant.DecodeLinearCollection[float64])
	}
	if err != nil {
		h.writeCodecError(w, scheme, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordDecode(scheme, "mixed", len(data), time.Since(start))
	}

	writeJSON(w, DecodeResponse{Shape: shape, Data: data}, http.StatusOK)
}

// readEncodeRequest parses and validates the shared parts of an encode request
func (h *Handler) readEncodeRequest(w http.ResponseWriter, r *http.Request) (*EncodeRequest, quant.Kind, bool) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, 0, false
	}

	var req EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return nil, 0, false
	}

	if req.FloatBits != 0 && req.FloatBits != 32 && req.FloatBits != 64 {
		writeError(w, fmt.Sprintf("Invalid float_bits %d (must be 32 or 64)", req.FloatBits), http.StatusBadRequest)
		return nil, 0, false
	}
	if len(req.Data) > h.codec.MaxElements {
		writeError(w, fmt.Sprintf("Tensor too large: %d elements (limit %d)", len(req.Data), h.codec.MaxElements), http.StatusRequestEntityTooLarge)
		return nil, 0, false
	}
	if len(req.Shape) > h.codec.MaxRank {
		writeError(w, fmt.Sprintf("Tensor rank too high: %d (limit %d)", len(req.Shape), h.codec.MaxRank), http.StatusBadRequest)
		return nil, 0, false
	}

	name := req.Kind
	if name == "" {
		name = h.codec.DefaultKind
	}
	kind, err := quant.ParseKind(name)
	if err != nil {
		writeError(w, fmt.Sprintf("Unknown kind %q", name), http.StatusBadRequest)
		return nil, 0, false
	}

	if h.metrics != nil {
		h.metrics.RecordTensorRank(len(req.Shape))
	}

	return &req, kind, true
}

// roundMode resolves the round mode for log encoding, falling back
// to the configured default when the request names none.
func (h *Handler) roundMode(name string) (quant.RoundMode, error) {
	if name == "" {
		name = h.codec.DefaultRoundMode
	}
	return quant.ParseRoundMode(name)
}

func (h *Handler) respondEncoded(w http.ResponseWriter, scheme string, q *quant.Quantized, elapsed time.Duration) {
	p, err := marshalPayload(q)
	if err != nil {
		writeError(w, fmt.Sprintf("Marshal failed: %v", err), http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordEncode(scheme, q.Kind().String(), q.Len(), elapsed)
		h.metrics.RecordPayloadSize(wireSize(q))
	}

	writeJSON(w, EncodeResponse{QuantizedPayload: p, Elements: q.Len()}, http.StatusOK)
}

// writeCodecError maps codec error kinds onto HTTP statuses
func (h *Handler) writeCodecError(w http.ResponseWriter, scheme string, err error) {
	status := http.StatusInternalServerError
	errorKind := "internal"
	switch {
	case errors.Is(err, quant.ErrDomain):
		status = http.StatusUnprocessableEntity
		errorKind = "domain"
	case errors.Is(err, quant.ErrInvalidArgument):
		status = http.StatusBadRequest
		errorKind = "invalid_argument"
	case errors.Is(err, quant.ErrPrecondition):
		status = http.StatusBadRequest
		errorKind = "precondition"
	}

	if h.metrics != nil {
		h.metrics.RecordCodecError(scheme, errorKind)
	}
	h.logger.Warn("Codec error", map[string]interface{}{
		"scheme": scheme,
		"kind":   errorKind,
		"error":  err.Error(),
	})

	writeError(w, err.Error(), status)
}

func encodeLinearAs[T tensor.Float](kind quant.Kind, data []float64, shape []int, ext *quant.Extrema) (*quant.Quantized, error) {
	t, err := tensorFrom[T](data, shape)
	if err != nil {
		return nil, err
	}
	return quant.EncodeLinear(kind, t, ext)
}

func encodeLogAs[T tensor.Float](kind quant.Kind, data []float64, shape []int, mode quant.RoundMode) (*quant.Quantized, error) {
	t, err := tensorFrom[T](data, shape)
	if err != nil {
		return nil, err
	}
	return quant.EncodeLog(kind, t, mode)
}

func encodeSlicesAs[T tensor.Float](kind quant.Kind, data []float64, shape []int, dim int, scheme string, ext *quant.Extrema, mode quant.RoundMode) (*quant.SliceCollection, error) {
	t, err := tensorFrom[T](data, shape)
	if err != nil {
		return nil, err
	}
	if scheme == "log" {
		return quant.EncodeLogAlongDim(kind, t, dim, mode)
	}
	return quant.EncodeLinearAlongDim(kind, t, dim, ext)
}

func tensorFrom[T tensor.Float](data []float64, shape []int) (tensor.Tensor[T], error) {
	conv := make([]T, len(data))
	for i, v := range data {
		conv[i] = T(v)
	}
	t, err := tensor.FromSlice(conv, shape...)
	if err != nil {
		return tensor.Tensor[T]{}, fmt.Errorf("%w: %v", quant.ErrInvalidArgument, err)
	}
	return t, nil
}

func decodeQuantized(q *quant.Quantized, scheme string, floatBits int) []float64 {
	if floatBits == 0 {
		floatBits = q.DefaultFloatBits()
	}

	if scheme == "log" {
		if floatBits == 32 {
			return widen(quant.DecodeLog32(q).Data())
		}
		return quant.DecodeLog64(q).Data()
	}
	if floatBits == 32 {
		return widen(quant.DecodeLinear32(q).Data())
	}
	return quant.DecodeLinear64(q).Data()
}

func decodeCollectionAs[T tensor.Float](c *quant.SliceCollection, decode func(*quant.SliceCollection) (tensor.Tensor[T], error)) ([]int, []float64, error) {
	t, err := decode(c)
	if err != nil {
		return nil, nil, err
	}
	d := t.Data()
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = float64(v)
	}
	return t.Shape(), out, nil
}

// wireSize is the marshaled length: the 16-byte range header plus the
// width-packed payload.
func wireSize(q *quant.Quantized) int {
	return 16 + (q.Len()*q.Kind().Bits()+7)/8
}

func widen(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}

func marshalPayload(q *quant.Quantized) (QuantizedPayload, error) {
	buf, err := quant.Marshal(q)
	if err != nil {
		return QuantizedPayload{}, err
	}
	return QuantizedPayload{
		Kind:    q.Kind().String(),
		Shape:   q.Shape(),
		Min:     finiteOrNil(q.Min()),
		Max:     finiteOrNil(q.Max()),
		Payload: base64.StdEncoding.EncodeToString(buf),
	}, nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func unmarshalPayload(p QuantizedPayload) (*quant.Quantized, error) {
	kind, err := quant.ParseKind(p.Kind)
	if err != nil {
		return nil, err
	}
	buf, err := base64.StdEncoding.DecodeString(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not valid base64: %v", quant.ErrInvalidArgument, err)
	}
	return quant.Unmarshal(kind, p.Shape, buf)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}
