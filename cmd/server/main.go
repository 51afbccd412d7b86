package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	todoagent "github.com/Desarso/todoagent"
	"github.com/Desarso/todoagent/controllers"
	"github.com/Desarso/todoagent/models/gemini"
	"github.com/Desarso/todoagent/models/openai"
	"github.com/Desarso/todoagent/stores"
	"github.com/Desarso/todoagent/task_tools"
)

func main() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := todoagent.NewConfig()
	if err := cfg.LoadFile("config.yaml"); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.LoadEnv()

	store, err := stores.NewStore(stores.NewStoreConfig(cfg.StoreType, cfg.StoreDSN))
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	model, err := buildModel(cfg)
	if err != nil {
		log.Fatalf("Failed to build model: %v", err)
	}

	agent := todoagent.Create_Agent(model, task_tools.DefaultTaskTools(store))

	chatCtrl := controllers.NewChatController(&agent, store, cfg.MaxToolRounds, cfg.RequestTimeout)
	wsCtrl := controllers.NewWSController(chatCtrl)

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		if err := store.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/:userID", controllers.AuthMiddleware(nil))
	chatCtrl.RegisterRoutes(api)
	wsCtrl.RegisterRoutes(api)

	startHousekeeping(store)

	log.Printf("Starting server on %s (provider=%s model=%s store=%s)",
		cfg.ListenAddr, cfg.ModelProvider, cfg.ModelName, cfg.StoreType)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func buildModel(cfg *todoagent.Config) (todoagent.Model, error) {
	switch cfg.ModelProvider {
	case "openai":
		return &openai.OpenAI_Model{
			Model:        cfg.ModelName,
			SystemPrompt: cfg.SystemPrompt,
		}, nil
	case "gemini":
		return &gemini.Gemini_Model{
			Model:        cfg.ModelName,
			SystemPrompt: cfg.SystemPrompt,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.ModelProvider)
	}
}

// startHousekeeping runs an hourly liveness check against the store and logs
// the outcome, so a silently broken database shows up in the logs before a
// user hits it.
func startHousekeeping(store stores.Store) {
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		if err := store.Ping(); err != nil {
			log.Printf("[HOUSEKEEPING] store ping failed: %v", err)
			return
		}
		log.Printf("[HOUSEKEEPING] store ping ok")
	})
	if err != nil {
		log.Printf("Failed to schedule housekeeping: %v", err)
		return
	}
	c.Start()
}
