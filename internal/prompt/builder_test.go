package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/easeaico/project-aiko/internal/types"
)

func testBuildContext(level int, levelName string, history []types.Message) BuildContext {
	return BuildContext{
		Character: &types.Character{
			Name:          "小雨",
			Nickname:      "柔柔",
			Gender:        "女",
			Identity:      "25歲，插畫家",
			DetailSetting: "性格溫柔體貼",
			OtherSetting:  types.PersonaDetails{BackgroundStory: "我在海邊小鎮長大。"},
		},
		User:      &types.User{Username: "阿明"},
		History:   history,
		Level:     level,
		LevelName: levelName,
	}
}

func TestBuildSystemIncludesPersonaAndTone(t *testing.T) {
	builder := NewBuilder(10)
	builder.nowFunc = func() time.Time { return time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC) }

	system, err := builder.BuildSystem(testBuildContext(1, "陌生期", nil))
	if err != nil {
		t.Fatalf("BuildSystem returned error: %v", err)
	}
	for _, want := range []string{"小雨", "柔柔", "插畫家", "我在海邊小鎮長大。", "陌生期", "距離感", "阿明"} {
		if !strings.Contains(system, want) {
			t.Fatalf("prompt missing %q:\n%s", want, system)
		}
	}
}

func TestBuildSystemToneEscalatesWithLevel(t *testing.T) {
	builder := NewBuilder(10)

	level1, err := builder.BuildSystem(testBuildContext(1, "陌生期", nil))
	if err != nil {
		t.Fatalf("BuildSystem returned error: %v", err)
	}
	level3, err := builder.BuildSystem(testBuildContext(3, "親密期", nil))
	if err != nil {
		t.Fatalf("BuildSystem returned error: %v", err)
	}
	if !strings.Contains(level1, "禮貌友善") || strings.Contains(level1, "撒嬌") {
		t.Fatal("level 1 prompt carries the wrong tone")
	}
	if !strings.Contains(level3, "撒嬌") {
		t.Fatal("level 3 prompt lacks the intimate tone")
	}
}

func TestBuildSystemTrimsHistory(t *testing.T) {
	builder := NewBuilder(2)
	history := []types.Message{
		{SpeakerName: "阿明", Content: "第一句"},
		{SpeakerName: "小雨", Content: "第二句"},
		{SpeakerName: "阿明", Content: "第三句"},
	}

	system, err := builder.BuildSystem(testBuildContext(2, "熟悉期", history))
	if err != nil {
		t.Fatalf("BuildSystem returned error: %v", err)
	}
	if strings.Contains(system, "第一句") {
		t.Fatal("expected the oldest message to be trimmed")
	}
	if !strings.Contains(system, "第二句") || !strings.Contains(system, "第三句") {
		t.Fatal("expected the two most recent messages to remain")
	}
}

func TestBuildSystemUnknownLevelFallsBack(t *testing.T) {
	builder := NewBuilder(10)
	system, err := builder.BuildSystem(testBuildContext(9, "未知", nil))
	if err != nil {
		t.Fatalf("BuildSystem returned error: %v", err)
	}
	if !strings.Contains(system, "禮貌友善") {
		t.Fatal("expected the level 1 tone fallback")
	}
}

func TestBuildSystemRequiresCharacterAndUser(t *testing.T) {
	builder := NewBuilder(10)
	if _, err := builder.BuildSystem(BuildContext{User: &types.User{}}); err == nil {
		t.Fatal("expected error without character")
	}
	if _, err := builder.BuildSystem(BuildContext{Character: &types.Character{}}); err == nil {
		t.Fatal("expected error without user")
	}
}

func TestBuildBackgroundDefaults(t *testing.T) {
	promptText, err := BuildBackground("小晴", "活潑開朗", "", "", "活潑", nil)
	if err != nil {
		t.Fatalf("BuildBackground returned error: %v", err)
	}
	for _, want := range []string{"小晴", "20多歲", "年輕專業人士", "閱讀和音樂", "background_story"} {
		if !strings.Contains(promptText, want) {
			t.Fatalf("background prompt missing %q", want)
		}
	}
}
