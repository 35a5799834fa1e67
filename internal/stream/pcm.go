package stream

import (
	"log"
	"net/http"
	"strconv"
)

// PCMHandler streams raw s16le PCM over chunked HTTP. The format travels in
// response headers since the body has no container.
type PCMHandler struct {
	broadcaster *Broadcaster
	format      Format
}

func NewPCMHandler(b *Broadcaster, format Format) *PCMHandler {
	return &PCMHandler{broadcaster: b, format: format}
}

func (h *PCMHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/L16; rate="+strconv.Itoa(h.format.SampleRate)+"; channels="+strconv.Itoa(h.format.Channels))
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Sample-Rate", strconv.Itoa(h.format.SampleRate))
	w.Header().Set("X-Channels", strconv.Itoa(h.format.Channels))
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	log.Printf("PCM listener connected (total: %d)", h.broadcaster.ListenerCount())
	defer func() {
		log.Printf("PCM listener disconnected (dropped %d frames)", listener.Dropped())
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-listener.Done():
			return
		case frame := <-listener.C:
			if _, err := w.Write(SamplesToBytes(frame)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
