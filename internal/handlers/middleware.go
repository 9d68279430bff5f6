package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// formInt reads an integer form value, defaulting to 0.
func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.FormValue(key))
	if err != nil {
		return 0
	}
	return n
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return n
}

// isAllowedEmoji checks if an emoji is in the allowed reaction list.
func isAllowedEmoji(emoji string) bool {
	allowed := map[string]struct{}{
		"👍": {}, "❤️": {}, "🎉": {}, "👏": {}, "😂": {}, "😍": {},
		"🤩": {}, "😮": {}, "😢": {}, "🙌": {}, "🔥": {}, "💪": {},
		"⭐": {}, "🏆": {}, "📸": {}, "🥳": {}, "😎": {}, "🤞": {},
	}
	_, ok := allowed[emoji]
	return ok
}
