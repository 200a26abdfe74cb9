// Package theme holds the static display-theme registry. Themes are never
// created or mutated at runtime, only looked up.
package theme

// DefaultID is the theme used when a lookup misses.
const DefaultID = "default"

// Gradient is the accent gradient used for buttons and badges.
type Gradient struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Config is the presentation bundle for one display theme.
type Config struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Gradient      Gradient `json:"gradient"`
	PreviewColors []string `json:"previewColors"`
}

var registry = []Config{
	{
		ID: "default", Name: "经典蓝", Description: "简洁清爽的默认风格",
		Gradient:      Gradient{From: "#3b82f6", To: "#8b5cf6"},
		PreviewColors: []string{"#3b82f6", "#8b5cf6", "#e2e8f0", "#f8fafc"},
	},
	{
		ID: "ocean-depths", Name: "海洋深蓝", Description: "专业沉稳的海洋风格",
		Gradient:      Gradient{From: "#2d8b8b", To: "#1a2332"},
		PreviewColors: []string{"#1a2332", "#2d8b8b", "#a8dadc", "#f1faee"},
	},
	{
		ID: "sunset-boulevard", Name: "暮光落日", Description: "温暖活力的日落风格",
		Gradient:      Gradient{From: "#e76f51", To: "#f4a261"},
		PreviewColors: []string{"#264653", "#e76f51", "#f4a261", "#e9c46a"},
	},
	{
		ID: "tech-innovation", Name: "科技创新", Description: "前卫时尚的科技风格",
		Gradient:      Gradient{From: "#0066ff", To: "#00ffff"},
		PreviewColors: []string{"#1e1e1e", "#0066ff", "#00ffff", "#ffffff"},
	},
	{
		ID: "midnight-galaxy", Name: "午夜星河", Description: "神秘梦幻的宇宙风格",
		Gradient:      Gradient{From: "#4a4e8f", To: "#a490c2"},
		PreviewColors: []string{"#2b1e3e", "#4a4e8f", "#a490c2", "#e6e6fa"},
	},
	{
		ID: "forest-canopy", Name: "森林翠影", Description: "清新自然的森林风格",
		Gradient:      Gradient{From: "#2d4a2b", To: "#a4ac86"},
		PreviewColors: []string{"#2d4a2b", "#7d8471", "#a4ac86", "#faf9f6"},
	},
	{
		ID: "desert-rose", Name: "玫瑰沙丘", Description: "柔美优雅的沙漠玫瑰风格",
		Gradient:      Gradient{From: "#b87d6d", To: "#d4a5a5"},
		PreviewColors: []string{"#5d2e46", "#b87d6d", "#d4a5a5", "#e8d5c4"},
	},
	{
		ID: "cyberpunk-neon", Name: "赛博霓虹", Description: "高饱和度的赛博朋克电竞风格",
		Gradient:      Gradient{From: "#ff00ff", To: "#00ffff"},
		PreviewColors: []string{"#ffffff", "#ff00ff", "#00ffff", "#fce7f3"},
	},
	{
		ID: "minimalist-white", Name: "极简白雪", Description: "极致留白的北欧性冷淡风格",
		Gradient:      Gradient{From: "#94a3b8", To: "#000000"},
		PreviewColors: []string{"#ffffff", "#000000", "#f0f0f0", "#94a3b8"},
	},
	{
		ID: "luxury-gold", Name: "奢华金边", Description: "高贵典雅的黑金商务风格",
		Gradient:      Gradient{From: "#c5a059", To: "#8e6d3a"},
		PreviewColors: []string{"#ffffff", "#c5a059", "#8e6d3a", "#fef3c7"},
	},
}

var byID = func() map[string]int {
	m := make(map[string]int, len(registry))
	for i, c := range registry {
		m[c.ID] = i
	}
	return m
}()

// Lookup returns the theme for id, falling back to the default theme.
func Lookup(id string) Config {
	if i, ok := byID[id]; ok {
		return clone(registry[i])
	}
	return clone(registry[byID[DefaultID]])
}

// Exists reports whether id is a registered theme.
func Exists(id string) bool {
	_, ok := byID[id]
	return ok
}

// All returns every theme in display order.
func All() []Config {
	out := make([]Config, len(registry))
	for i, c := range registry {
		out[i] = clone(c)
	}
	return out
}

func clone(c Config) Config {
	c.PreviewColors = append([]string(nil), c.PreviewColors...)
	return c
}
