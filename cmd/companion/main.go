// Package main is the interactive entry point of the companion backend.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/easeaico/project-aiko/internal/config"
	"github.com/easeaico/project-aiko/internal/conversation"
	"github.com/easeaico/project-aiko/internal/favorability"
	"github.com/easeaico/project-aiko/internal/models"
	"github.com/easeaico/project-aiko/internal/persona"
	"github.com/easeaico/project-aiko/internal/prompt"
	"github.com/easeaico/project-aiko/internal/storage"
	"github.com/easeaico/project-aiko/internal/types"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n再見！")
		cancel()
		// REPL 可能阻塞等待 stdin，給它短暫時間退出
		time.Sleep(500 * time.Millisecond)
		os.Exit(0)
	}()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	builder := prompt.NewBuilder(cfg.HistoryLimit)
	responder, writer, err := buildResponder(ctx, cfg, builder)
	if err != nil {
		log.Fatalf("failed to create responder: %v", err)
	}

	favCfg := favorability.DefaultConfig()
	favCfg.FamiliarThreshold = cfg.FamiliarThreshold
	favCfg.IntimateThreshold = cfg.IntimateThreshold
	tracker := favorability.NewTracker(store.Favorability, favCfg)

	svc := conversation.NewService(
		store.Conversations,
		store.Messages,
		store.Characters,
		store.Users,
		tracker,
		responder,
		conversation.WithHistoryLimit(cfg.HistoryLimit),
		conversation.WithReplyTimeout(cfg.ReplyTimeout),
	)
	generator := persona.NewGenerator(writer, time.Now().UnixNano())

	if err := runREPL(ctx, store, svc, generator, favCfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("chat session failed: %v", err)
	}
}

func buildResponder(ctx context.Context, cfg config.Config, builder *prompt.Builder) (conversation.CharacterResponder, persona.BackgroundWriter, error) {
	switch cfg.Provider {
	case "openai":
		responder, err := models.NewOpenAIResponder(cfg.LLMModel, cfg.OpenAIAPIKey, builder)
		if err != nil {
			return nil, nil, err
		}
		writer, err := models.NewBackgroundWriter(cfg.LLMModel, cfg.OpenAIAPIKey, "")
		if err != nil {
			return nil, nil, err
		}
		return responder, writer, nil
	case "openrouter":
		responder, err := models.NewOpenRouterResponder(cfg.LLMModel, cfg.OpenAIAPIKey, builder)
		if err != nil {
			return nil, nil, err
		}
		writer, err := models.NewBackgroundWriter(cfg.LLMModel, cfg.OpenAIAPIKey, "https://openrouter.ai/api/v1")
		if err != nil {
			return nil, nil, err
		}
		return responder, writer, nil
	case "gemini":
		responder, err := models.NewGeminiResponder(ctx, cfg.LLMModel, cfg.GoogleAPIKey, builder)
		if err != nil {
			return nil, nil, err
		}
		// 背景故事改用模板後備，Gemini 不走結構化輸出。
		return responder, nil, nil
	default:
		responder, err := models.NewGrokResponder(cfg.LLMModel, cfg.XAIAPIKey, builder)
		if err != nil {
			return nil, nil, err
		}
		writer, err := models.NewBackgroundWriter(cfg.LLMModel, cfg.XAIAPIKey, "https://api.x.ai/v1")
		if err != nil {
			return nil, nil, err
		}
		return responder, writer, nil
	}
}

func runREPL(ctx context.Context, store *storage.Store, svc *conversation.Service, generator *persona.Generator, favCfg favorability.Config) error {
	scanner := bufio.NewScanner(os.Stdin)

	username := ask(scanner, "請輸入你的名字：")
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	user, err := store.Users.GetOrCreate(ctx, username)
	if err != nil {
		return err
	}

	character, err := resolveCharacter(ctx, scanner, store, generator, user)
	if err != nil {
		return err
	}
	fmt.Printf("你正在和 %s 聊天。輸入 /status 查看好感度，/summary 查看統計，/quit 離開。\n\n", character.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/status":
			status, err := svc.FavorabilityStatus(ctx, user.ID, character.ID, favCfg)
			if err != nil {
				fmt.Printf("查詢失敗：%v\n", err)
				continue
			}
			printStatus(status)
			continue
		case "/summary":
			summary, err := svc.ConversationSummary(ctx, user.ID, character.ID)
			if err != nil {
				fmt.Printf("查詢失敗：%v\n", err)
				continue
			}
			printSummary(summary)
			continue
		}

		reply, err := svc.SendMessage(ctx, user.ID, character.ID, line)
		if err != nil {
			if errors.Is(err, types.ErrUpstreamUnavailable) {
				fmt.Println("對方暫時沒有回應，請稍後再試。")
				continue
			}
			return err
		}
		fmt.Printf("%s：%s\n", character.Name, reply.Text)
		printNotices(reply)
	}
}

func resolveCharacter(ctx context.Context, scanner *bufio.Scanner, store *storage.Store, generator *persona.Generator, user *types.User) (*types.Character, error) {
	characters, err := store.Characters.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(characters) > 0 {
		return &characters[0], nil
	}

	fmt.Println("先回答幾個問題，為你創造一位專屬伴侶。")
	profile := types.DreamProfile{
		AgeRange:            ask(scanner, "理想的年齡範圍？（如 25-30）"),
		Occupation:          ask(scanner, "理想的職業？"),
		PhysicalDescription: ask(scanner, "外貌描述？"),
		TalkingStyle:        ask(scanner, "喜歡的說話風格？（如 溫柔體貼 / 活潑開朗）"),
		Interests:           splitList(ask(scanner, "她的興趣？（用逗號分隔）")),
		Likes:               splitList(ask(scanner, "你自己喜歡什麼？（用逗號分隔）")),
	}

	character, err := generator.Generate(ctx, user.ID, profile)
	if err != nil {
		return nil, err
	}
	conv, err := store.Characters.Create(ctx, character)
	if err != nil {
		return nil, err
	}

	greeting := persona.InitialMessage(character, profile)
	msg := &types.Message{
		ConversationID:    conv.ID,
		Speaker:           types.SpeakerCharacter,
		SpeakerName:       character.Name,
		Content:           greeting,
		FavorabilityLevel: int(favorability.LevelUnfamiliar),
	}
	if _, err := store.Messages.Append(ctx, msg, nil); err != nil {
		return nil, err
	}
	fmt.Printf("\n%s：%s\n\n", character.Name, greeting)
	return character, nil
}

func printNotices(reply conversation.Reply) {
	if reply.LevelIncreased {
		fmt.Printf("【好感度提升】你們的關係進入了%s！\n", reply.LevelName)
	}
	if reply.MilestoneReached {
		fmt.Printf("【里程碑】這是你們的第 %d 則訊息！\n", reply.MilestoneNumber)
	}
	if reply.AnniversaryReached {
		fmt.Printf("【紀念日】你們已經相識 %d 天了！\n", reply.AnniversaryDays)
	}
}

func printStatus(status conversation.Status) {
	fmt.Printf("目前階段：%s（等級 %d）\n", status.LevelName, status.Level)
	fmt.Printf("訊息數：%d，進度：%.1f%%\n", status.MessageCount, status.ProgressPercent)
	if status.NextLevelAt != nil {
		fmt.Printf("下一階段需要 %d 則訊息\n", *status.NextLevelAt)
	}
}

func printSummary(summary conversation.Summary) {
	fmt.Printf("總訊息數：%d（你 %d / 她 %d）\n", summary.TotalMessages, summary.UserMessages, summary.CharacterMessages)
	if summary.FirstMessageAt != nil {
		fmt.Printf("相識於：%s，共 %d 天，平均每天 %.1f 則\n",
			summary.FirstMessageAt.Format("2006-01-02"), summary.ConversationDays, summary.AveragePerDay)
	}
}

func ask(scanner *bufio.Scanner, promptText string) string {
	fmt.Print(promptText)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	}) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
