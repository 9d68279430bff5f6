package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"goalbingo/internal/board"
	"goalbingo/internal/logging"
	"goalbingo/internal/mailer"
	"goalbingo/internal/suggest"
)

// maxPhotoUpload bounds a single proof-photo upload.
const maxPhotoUpload = 10 << 20

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	Hub     *board.Hub
	Mailer  mailer.Mailer
	Suggest *suggest.Client
}

// NewHandler creates a new handler instance.
func NewHandler(hub *board.Hub, m mailer.Mailer, sg *suggest.Client) *Handler {
	if m == nil {
		m = mailer.LogMailer{}
	}
	return &Handler{Hub: hub, Mailer: m, Suggest: sg}
}

// userPayload mirrors the identity-provider shape in request bodies.
type userPayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

func (u userPayload) toUser() board.User {
	return board.User{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}

// HandleNew creates a board under a fresh id and returns it.
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

// HandleBoard returns the current board snapshot.
func (h *Handler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/board/")
	s := h.Hub.Get(r.Context(), board.ParseRef(id), board.User{})
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleSSE streams live board snapshots and effect events.
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/sse/")
	user := board.User{
		ID:          r.URL.Query().Get("userId"),
		DisplayName: r.URL.Query().Get("displayName"),
		Email:       r.URL.Query().Get("email"),
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), user)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 16)
	s.AddWatcher(ch)
	defer s.RemoveWatcher(ch)

	s.Mu.Lock()
	initial, _ := json.Marshal(s.StateLocked())
	s.Mu.Unlock()
	_, _ = fmt.Fprintf(w, "data: %s\n\n", initial)
	flusher.Flush()

	s.Touch()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg := <-ch:
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

type tileRequest struct {
	Index int         `json:"index"`
	User  userPayload `json:"user"`
}

// HandleToggle flips progress on one tile.
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/toggle/")
	var req tileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), req.User.toUser())
	s.ToggleItem(req.Index, req.User.toUser())
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleDecrement removes one completion step from a tile.
func (h *Handler) HandleDecrement(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/decrement/")
	var req tileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), req.User.toUser())
	s.DecrementProgress(req.Index)
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandlePhoto accepts a multipart proof-photo upload. mode=complete
// steps the tile forward with the photo attached; mode=attach only
// adds the photo.
func (h *Handler) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/photo/")
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad form"})
		return
	}
	index := formInt(r, "index")
	user := board.User{
		ID:          r.FormValue("userId"),
		DisplayName: r.FormValue("displayName"),
		Email:       r.FormValue("email"),
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing photo"})
		return
	}
	defer file.Close()

	s := h.Hub.Get(r.Context(), board.ParseRef(id), user)

	var url string
	switch r.FormValue("mode") {
	case "attach":
		url, err = s.AddPhotoToTile(r.Context(), index, header.Filename, file)
	default:
		url, err = s.CompleteWithPhoto(r.Context(), index, header.Filename, file, user)
	}
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, board.ErrPhotoLimit) {
			status = http.StatusConflict
		}
		WriteJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "url": url, "state": s.Snapshot()})
}

// HandlePhotoDelete removes one proof photo by position.
func (h *Handler) HandlePhotoDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/photo/delete/")
	var req struct {
		Index      int `json:"index"`
		PhotoIndex int `json:"photoIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), board.User{})
	s.DeletePhoto(req.Index, req.PhotoIndex)
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleReact appends an emoji reaction to a tile.
func (h *Handler) HandleReact(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/react/")
	var req struct {
		Index int         `json:"index"`
		Emoji string      `json:"emoji"`
		User  userPayload `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	if !isAllowedEmoji(req.Emoji) {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "unsupported emoji"})
		return
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), req.User.toUser())
	s.AddReaction(req.Index, req.Emoji, req.User.toUser())
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleItem edits one tile's text or style (inline edit).
func (h *Handler) HandleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/item/")
	var req struct {
		Index int          `json:"index"`
		Text  *string      `json:"text"`
		Style *board.Style `json:"style"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), board.User{})
	s.UpdateItem(req.Index, board.ItemUpdate{Text: req.Text, Style: req.Style})
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleSave commits a bulk-edit session: the whole tile list at once.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/save/")
	var req struct {
		Items []board.Tile `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), board.User{})
	s.SaveBoard(req.Items)
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleLock finalizes the board, optionally shuffling tile order.
func (h *Handler) HandleLock(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/lock/")
	var req struct {
		Shuffle bool `json:"shuffle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), board.User{})
	if err := s.JumbleAndLock(r.Context(), req.Shuffle); err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error(), "state": s.Snapshot()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleRefresh re-reads the persisted board document and applies it
// over the live session (last writer wins).
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/refresh/")
	s := h.Hub.Get(r.Context(), board.ParseRef(id), board.User{})
	if err := s.Refresh(r.Context()); err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error(), "state": s.Snapshot()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleUnlock reverses a lock, restoring the pre-shuffle order when
// a backup exists.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/unlock/")
	s := h.Hub.Get(r.Context(), board.ParseRef(id), board.User{})
	if err := s.UnlockBoard(r.Context()); err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error(), "state": s.Snapshot()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleInvite adds a member and fires the invitation email.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/invite/")
	var req struct {
		UserID string      `json:"userId"`
		Email  string      `json:"email"`
		Role   board.Role  `json:"role"`
		User   userPayload `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	role := req.Role
	switch role {
	case board.RoleOwner, board.RoleEditor, board.RoleViewer:
	default:
		role = board.RoleEditor
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), req.User.toUser())
	if err := s.SetMember(r.Context(), req.UserID, role); err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	if req.Email != "" {
		inv := mailer.Invite{
			Recipient: req.Email,
			Sender:    req.User.toUser().Attribution(),
			BoardName: s.Snapshot().Title,
		}
		if err := h.Mailer.SendInvite(r.Context(), inv); err != nil {
			logging.Debugf("invite email to %s failed: %v", req.Email, err)
			WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "emailSent": false})
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "emailSent": req.Email != ""})
}

// HandleMemberRemove drops a member from the board.
func (h *Handler) HandleMemberRemove(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/member/remove/")
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	s := h.Hub.Get(r.Context(), board.ParseRef(id), board.User{})
	if err := s.DropMember(r.Context(), req.UserID); err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleSuggest returns goal text ideas from the suggestion model.
func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	if h.Suggest == nil {
		WriteJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "suggestions disabled"})
		return
	}
	n := queryInt(r, "n", 5)
	goals, err := h.Suggest.Suggest(r.Context(), n)
	if err != nil {
		WriteJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "goals": goals})
}

// ClientIP extracts the client IP from the request.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
