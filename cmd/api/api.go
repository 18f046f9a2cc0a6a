package api

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/memeland/memeland-server/service/auth"
	"github.com/memeland/memeland-server/service/cache"
	"github.com/memeland/memeland-server/service/comment"
	"github.com/memeland/memeland-server/service/meme"
)

type APIServer struct {
	address string
	db      *gorm.DB
	cache   *cache.RedisCache
}

func NewApiServer(address string, db *gorm.DB, redisCache *cache.RedisCache) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		cache:   redisCache,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	authHandler := auth.NewHandler(s.db)
	authHandler.RegisterRoutes(subrouter)

	memeHandler := meme.NewHandler(s.db, s.cache)
	memeHandler.RegisterRoutes(subrouter)
	memeHandler.RegisterStaticRoutes(router)

	commentHandler := comment.NewHandler(s.db)
	commentHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}
