package services

import (
	"context"
	"fmt"

	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/store"
)

// PauseRequest is the body of POST /memories/actions/pause. Exactly one selector
// is honoured, checked in this order: GlobalPause, AppID, AllForApp with
// MemoryIDs, MemoryIDs, CategoryIDs.
type PauseRequest struct {
	UserID      string   `json:"user_id"`
	MemoryIDs   []string `json:"memory_ids,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	AppID       string   `json:"app_id,omitempty"`
	AllForApp   bool     `json:"all_for_app,omitempty"`
	GlobalPause bool     `json:"global_pause,omitempty"`
	State       string   `json:"state,omitempty"`
}

// StateChangeResult reports a bulk transition.
type StateChangeResult struct {
	Message string `json:"message"`
	// Matched counts selected memories; Changed counts those whose state moved.
	Matched int `json:"matched"`
	Changed int `json:"changed"`
	// Errors lists vector store cleanup failures after deletion.
	Errors []string `json:"errors,omitempty"`
}

// UpdateState moves the user's memories to state. Ids that do not exist, belong to
// someone else or are already deleted are skipped. Each memory changes in its own
// transaction.
func (s *MemoryService) UpdateState(ctx context.Context, userID string, ids []string, state model.MemoryState) (StateChangeResult, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return StateChangeResult{}, err
	}
	if len(ids) == 0 {
		return StateChangeResult{}, model.NewValidationError("memory_ids", "at least one id is required")
	}
	selected, err := s.store.Memories().Select(ctx, store.Selector{OwnerID: user.ID, IDs: ids})
	if err != nil {
		return StateChangeResult{}, err
	}
	res, err := s.transition(ctx, selected, state, user.UserID)
	res.Message = fmt.Sprintf("Successfully %s %d memories", stateVerb(state), len(selected))
	return res, err
}

// PauseMemories applies a state (paused by default) to the memories picked by the
// first selector present in req.
func (s *MemoryService) PauseMemories(ctx context.Context, req PauseRequest) (StateChangeResult, error) {
	state := model.StatePaused
	if req.State != "" {
		var err error
		if state, err = model.ParseMemoryState(req.State); err != nil {
			return StateChangeResult{}, err
		}
	}
	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return StateChangeResult{}, err
	}
	verb := stateVerb(state)

	var sel store.Selector
	var msg string
	switch {
	case req.GlobalPause:
		sel = store.Selector{OwnerID: user.ID, SkipArchived: true}
		msg = fmt.Sprintf("Successfully %s all memories", verb)
	case req.AppID != "":
		sel = store.Selector{OwnerID: user.ID, AppID: req.AppID, SkipArchived: true}
		msg = fmt.Sprintf("Successfully %s all memories for app %s", verb, req.AppID)
	case req.AllForApp && len(req.MemoryIDs) > 0:
		sel = store.Selector{OwnerID: user.ID, IDs: req.MemoryIDs}
		msg = fmt.Sprintf("Successfully %s all memories", verb)
	case len(req.MemoryIDs) > 0:
		sel = store.Selector{OwnerID: user.ID, IDs: req.MemoryIDs}
		msg = fmt.Sprintf("Successfully %s %d memories", verb, len(req.MemoryIDs))
	case len(req.CategoryIDs) > 0:
		sel = store.Selector{OwnerID: user.ID, CategoryIDs: req.CategoryIDs, SkipArchived: true}
		msg = fmt.Sprintf("Successfully %s memories in %d categories", verb, len(req.CategoryIDs))
	default:
		return StateChangeResult{}, model.NewValidationError("pause", "invalid pause request parameters")
	}

	ids, err := s.store.Memories().Select(ctx, sel)
	if err != nil {
		return StateChangeResult{}, err
	}
	res, err := s.transition(ctx, ids, state, user.UserID)
	res.Message = msg
	return res, err
}

// ArchiveMemories archives the user's memories.
func (s *MemoryService) ArchiveMemories(ctx context.Context, userID string, ids []string) (StateChangeResult, error) {
	return s.UpdateState(ctx, userID, ids, model.StateArchived)
}

// DeleteMemories soft-deletes the user's memories and removes their vector points.
// Vector store failures are reported in the result rather than failing the call.
func (s *MemoryService) DeleteMemories(ctx context.Context, userID string, ids []string) (StateChangeResult, error) {
	return s.UpdateState(ctx, userID, ids, model.StateDeleted)
}

// DeleteAllMemories soft-deletes every memory the user owns.
func (s *MemoryService) DeleteAllMemories(ctx context.Context, userID string) (StateChangeResult, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return StateChangeResult{}, err
	}
	ids, err := s.store.Memories().Select(ctx, store.Selector{OwnerID: user.ID})
	if err != nil {
		return StateChangeResult{}, err
	}
	res, err := s.transition(ctx, ids, model.StateDeleted, user.UserID)
	res.Message = fmt.Sprintf("Successfully deleted %d memories", res.Changed)
	return res, err
}

func (s *MemoryService) transition(ctx context.Context, ids []string, state model.MemoryState, changedBy string) (StateChangeResult, error) {
	res := StateChangeResult{Matched: len(ids)}
	for _, id := range ids {
		changed, err := s.store.Memories().Transition(ctx, id, state, changedBy)
		if model.IsNotFoundError(err) {
			continue
		}
		if err != nil {
			return res, err
		}
		if !changed {
			continue
		}
		res.Changed++
		if state == model.StateDeleted && s.idx != nil {
			if err := s.idx.Delete(ctx, id); err != nil {
				s.log.Error().Stack().Err(err).Str("memory_id", id).Msg("vector store delete failed")
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", id, err))
			}
		}
	}
	return res, nil
}

func stateVerb(state model.MemoryState) string {
	switch state {
	case model.StateActive:
		return "resumed"
	default:
		return string(state)
	}
}
