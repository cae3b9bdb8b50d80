// Bulk-imports quiz YAML files as drafts owned by one teacher.
//
// Usage: go run scripts/import_quizzes.go -teacher 3 quizzes/*.yaml

package main

import (
	"classhub_backend/internal/config"
	"classhub_backend/internal/model"
	"classhub_backend/internal/repository"
	"classhub_backend/internal/service"
	"classhub_backend/pkg/database"
	"classhub_backend/pkg/logger"
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"
)

func main() {
	teacherID := flag.Uint("teacher", 0, "id of the teacher who will own the quizzes")
	configDir := flag.String("config", "configs", "directory holding config.yaml")
	flag.Parse()

	if *teacherID == 0 || flag.NArg() == 0 {
		log.Fatal("usage: import_quizzes -teacher <id> file.yaml [file.yaml...]")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	teacher, err := users.FindByID(ctx, *teacherID)
	if err != nil {
		log.Fatalf("Teacher %d not found: %v", *teacherID, err)
	}
	if teacher.Role != model.Teacher && teacher.Role != model.Admin {
		log.Fatalf("User %d is a %s, not a teacher", teacher.ID, teacher.Role)
	}

	notifier := service.NewNotifier(repository.NewNotificationRepository(db), users, nil, nil)
	quizzes := service.NewQuizService(repository.NewQuizRepository(db), repository.NewEnrollmentRepository(db), notifier)
	p := model.Principal{UserID: teacher.ID, Role: teacher.Role}

	failed := 0
	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			logger.Log.Error("open failed", zap.String("file", path), zap.Error(err))
			failed++
			continue
		}
		quiz, err := quizzes.Import(ctx, p, f)
		f.Close()
		if err != nil {
			logger.Log.Error("import failed", zap.String("file", path), zap.Error(err))
			failed++
			continue
		}
		logger.Log.Info("quiz imported", zap.String("file", path), zap.Uint("quizId", quiz.ID), zap.Int("questions", len(quiz.Questions)))
	}

	if failed > 0 {
		log.Fatalf("%d of %d files failed", failed, flag.NArg())
	}
	log.Printf("Imported %d quizzes", flag.NArg())
}
