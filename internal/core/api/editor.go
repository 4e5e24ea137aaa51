package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/rulebook/internal/interchange"
	"github.com/solatis/rulebook/internal/rules"
	"github.com/solatis/rulebook/internal/types"
)

// StateView is the response body of every state-returning method.
type StateView struct {
	State   rules.State `json:"state"`
	ETag    string      `json:"etag"`
	Session string      `json:"session"`
}

// EvaluateResult is the response body of Evaluate.
type EvaluateResult struct {
	RuleSetID types.ID        `json:"ruleSetId"`
	Findings  []types.Finding `json:"findings"`
}

// GetState returns the current editor state.
func (s *EditorService) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.stateResponse()
}

// Dispatch applies one named command: {"op": "<name>", "args": {...}}.
func (s *EditorService) Dispatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	opValue, ok := req.GetFields()["op"]
	if !ok || opValue.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "op is required")
	}
	op := opValue.GetStringValue()

	var args []byte
	if argsValue, ok := req.GetFields()["args"]; ok {
		raw, err := protojson.Marshal(argsValue)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid args: %v", err))
		}
		args = raw
	}

	if err := s.store.DispatchNamed(op, args); err != nil {
		return nil, toStatus(err)
	}
	return s.stateResponse()
}

// Import replaces the catalog with a JSON array of rulesets.
// Rejected input leaves the store untouched.
func (s *EditorService) Import(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text := req.GetValue()
	if len(text) > s.cfg.MaxImportBytes {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("import exceeds maximum of %d bytes", s.cfg.MaxImportBytes))
	}

	ruleSets, err := interchange.ParseImport([]byte(text))
	if err != nil {
		s.logger.Info().Err(err).Int("bytes", len(text)).Msg("import rejected")
		return nil, toStatus(err)
	}

	s.store.SetRuleSets(ruleSets)
	s.logger.Info().Int("rule_sets", len(ruleSets)).Msg("rule sets imported")
	return s.stateResponse()
}

// Export serializes the catalog: {"format": "json" | "yaml" | "document"}.
func (s *EditorService) Export(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	format := interchange.FormatJSON
	if v, ok := req.GetFields()["format"]; ok && v.GetStringValue() != "" {
		parsed, err := interchange.ParseFormat(v.GetStringValue())
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		format = parsed
	}

	var buf bytes.Buffer
	if err := interchange.Export(&buf, s.store.State().RuleSets, format); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.String(buf.String()), nil
}

// Evaluate applies the selected ruleset to a measurements object.
func (s *EditorService) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	payload, err := protojson.Marshal(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid measurements: %v", err))
	}

	selected, ok := s.store.State().Selected()
	if !ok {
		return nil, toStatus(types.ErrNoSelection)
	}
	findings, err := rules.Evaluate(selected, types.Payload(payload))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(EvaluateResult{RuleSetID: selected.ID, Findings: findings})
}

func (s *EditorService) stateResponse() (*structpb.Struct, error) {
	state := s.store.State()
	return toStruct(StateView{
		State:   state,
		ETag:    computeETag(state.RuleSets),
		Session: string(s.store.Session()),
	})
}

// computeETag hashes the catalog content; reorders and renames change it, selection does not.
func computeETag(ruleSets []types.RuleSet) string {
	h := sha256.New()
	if err := json.NewEncoder(h).Encode(ruleSets); err != nil {
		return ""
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// toStruct converts a JSON-tagged value into a Struct via its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}

// fromStruct decodes a Struct into a JSON-tagged value.
func fromStruct(m proto.Message, v any) error {
	raw, err := protojson.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
