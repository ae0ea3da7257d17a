package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dxta-dev/clankers/internal/store"
	"github.com/dxta-dev/clankers/internal/types"
)

// decodeParams unmarshals params into dst, mapping failures to
// InvalidParams. Unknown keys are ignored; harness adapters may send
// superset payloads.
func decodeParams(params json.RawMessage, dst any) *Error {
	if len(params) == 0 {
		return NewError(CodeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return NewError(CodeInvalidParams, "invalid params: "+err.Error())
	}
	return nil
}

// storeError maps store failures to the RPC error taxonomy.
func storeError(err error) *Error {
	var mf *store.MissingFieldError
	if errors.As(err, &mf) {
		return NewMissingFieldError(mf.Field)
	}
	return NewError(CodeInternalError, err.Error())
}

func (s *Server) handleHealth(_ context.Context, _ Envelope, _ json.RawMessage) (any, *Error) {
	return &HealthResult{
		OK:      true,
		Version: ServerVersion,
		Uptime:  time.Since(s.startTime).Seconds(),
	}, nil
}

func (s *Server) handleEnsureDB(_ context.Context, _ Envelope, _ json.RawMessage) (any, *Error) {
	// The daemon ensures the database at startup; by the time a client asks,
	// the file exists. Created reports whether this daemon run created it.
	return &EnsureDBResult{DBPath: s.store.Path(), Created: s.dbCreated}, nil
}

func (s *Server) handleGetDBPath(_ context.Context, _ Envelope, _ json.RawMessage) (any, *Error) {
	return &GetDBPathResult{DBPath: s.store.Path()}, nil
}

func (s *Server) handleUpsertSession(ctx context.Context, _ Envelope, params json.RawMessage) (any, *Error) {
	var p UpsertSessionParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.store.UpsertSession(ctx, &p.Session); err != nil {
		return nil, storeError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleUpsertMessage(ctx context.Context, _ Envelope, params json.RawMessage) (any, *Error) {
	var p UpsertMessageParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.store.UpsertMessage(ctx, &p.Message); err != nil {
		return nil, storeError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleUpsertTool(ctx context.Context, _ Envelope, params json.RawMessage) (any, *Error) {
	var p UpsertToolParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.store.UpsertTool(ctx, &p.Tool); err != nil {
		return nil, storeError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleUpsertSessionError(ctx context.Context, _ Envelope, params json.RawMessage) (any, *Error) {
	var p UpsertSessionErrorParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.store.UpsertSessionError(ctx, &p.SessionError); err != nil {
		return nil, storeError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleUpsertCompactionEvent(ctx context.Context, _ Envelope, params json.RawMessage) (any, *Error) {
	var p UpsertCompactionEventParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.store.UpsertCompactionEvent(ctx, &p.CompactionEvent); err != nil {
		return nil, storeError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleGetSessions(ctx context.Context, _ Envelope, params json.RawMessage) (any, *Error) {
	var p GetSessionsParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	sessions, err := s.store.GetSessions(ctx, p.Limit)
	if err != nil {
		return nil, storeError(err)
	}
	if sessions == nil {
		sessions = []types.Session{}
	}
	return &GetSessionsResult{Sessions: sessions}, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ Envelope, params json.RawMessage) (any, *Error) {
	var p GetSessionParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.ID == "" {
		return nil, NewMissingFieldError("id")
	}
	detail, err := s.store.GetSessionByID(ctx, p.ID)
	if err != nil {
		return nil, storeError(err)
	}
	msgs := detail.Messages
	if msgs == nil {
		msgs = []types.Message{}
	}
	return &GetSessionResult{Session: detail.Session, Messages: msgs}, nil
}

func (s *Server) handleGetMessages(ctx context.Context, _ Envelope, params json.RawMessage) (any, *Error) {
	var p GetMessagesParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.SessionID == "" {
		return nil, NewMissingFieldError("sessionId")
	}
	msgs, err := s.store.GetMessages(ctx, p.SessionID)
	if err != nil {
		return nil, storeError(err)
	}
	if msgs == nil {
		msgs = []types.Message{}
	}
	return &GetMessagesResult{Messages: msgs}, nil
}

func (s *Server) handleLogWrite(_ context.Context, env Envelope, params json.RawMessage) (any, *Error) {
	var p LogWriteParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	// The calling client is the default component.
	if p.Entry.Component == "" {
		p.Entry.Component = env.Client.Name
	}
	if err := s.logger.Write(p.Entry); err != nil {
		return nil, NewError(CodeInternalError, err.Error())
	}
	return &OKResult{OK: true}, nil
}
