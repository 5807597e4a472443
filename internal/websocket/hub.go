package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans scan events out to the teacher watching a session. Each teacher
// gets one redis subscription regardless of how many tabs they have open.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	jwtSecret   []byte
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, jwtSecret string) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		jwtSecret:   []byte(jwtSecret),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userIDStr, _ := claims["user_id"].(string)
	teacherID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(teacherID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(teacherID, conn)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(teacherID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[teacherID] = append(h.connections[teacherID], conn)

	// Start the feed subscription on the first connection for this teacher
	if len(h.connections[teacherID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[teacherID] = cancel
		go h.subscribeToFeed(ctx, teacherID)
	}

	log.Printf("Scan feed connected: teacher %s (total: %d)", teacherID, len(h.connections[teacherID]))
}

func (h *Hub) unregisterConnection(teacherID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[teacherID]
	for i, c := range conns {
		if c == conn {
			h.connections[teacherID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[teacherID]) == 0 {
		delete(h.connections, teacherID)
		if cancel, ok := h.cancelFuncs[teacherID]; ok {
			cancel()
			delete(h.cancelFuncs, teacherID)
		}
	}

	log.Printf("Scan feed disconnected: teacher %s", teacherID)
}

func (h *Hub) subscribeToFeed(ctx context.Context, teacherID uuid.UUID) {
	channel := "scan_feed:" + teacherID.String()
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(teacherID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(teacherID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[teacherID] {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}
