// Package catalog serves the bot's static content: Khmer vocabulary, news
// snippets and national holidays. The data ships inside the binary as YAML
// and is decoded once at load.
package catalog

import (
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed words.yaml
var wordsYAML []byte

//go:embed news.yaml
var newsYAML []byte

//go:embed holidays.yaml
var holidaysYAML []byte

type Word struct {
	ID       int    `yaml:"id"`
	Khmer    string `yaml:"khmer"`
	Latin    string `yaml:"latin"`
	English  string `yaml:"english"`
	Category string `yaml:"category"`
}

type NewsItem struct {
	Title    string `yaml:"title"`
	Summary  string `yaml:"summary"`
	Category string `yaml:"category"`
}

type Holiday struct {
	Name            string `yaml:"name"`
	NameEn          string `yaml:"nameEn"`
	ApproximateDate string `yaml:"approximateDate"`
	Description     string `yaml:"description"`
}

type Catalog struct {
	words    []Word
	news     []NewsItem
	holidays []Holiday
	rand     *rand.Rand
}

// Load decodes the embedded documents. It fails only when the embedded data
// is itself broken, which a test pins down.
func Load() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(wordsYAML, &c.words); err != nil {
		return nil, fmt.Errorf("catalog: decode words: %w", err)
	}
	if err := yaml.Unmarshal(newsYAML, &c.news); err != nil {
		return nil, fmt.Errorf("catalog: decode news: %w", err)
	}
	if err := yaml.Unmarshal(holidaysYAML, &c.holidays); err != nil {
		return nil, fmt.Errorf("catalog: decode holidays: %w", err)
	}
	if len(c.words) == 0 {
		return nil, fmt.Errorf("catalog: no words embedded")
	}
	c.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	return &c, nil
}

func (c *Catalog) RandomWord() Word {
	return c.words[c.rand.Intn(len(c.words))]
}

// DailyWord is stable for a given calendar day.
func (c *Catalog) DailyWord(day time.Time) Word {
	idx := day.UTC().YearDay() % len(c.words)
	return c.words[idx]
}

func (c *Catalog) WordByID(id int) (Word, bool) {
	for _, w := range c.words {
		if w.ID == id {
			return w, true
		}
	}
	return Word{}, false
}

func (c *Catalog) WordsByCategory(category string) []Word {
	category = normalize(category)
	var out []Word
	for _, w := range c.words {
		if normalize(w.Category) == category {
			out = append(out, w)
		}
	}
	return out
}

func (c *Catalog) WordCategories() []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range c.words {
		key := normalize(w.Category)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// CheckAnswer reports whether answer matches the word's English meaning or
// its Khmer form. Comparison ignores case and surrounding space.
func (c *Catalog) CheckAnswer(answer string, wordID int) (bool, error) {
	w, ok := c.WordByID(wordID)
	if !ok {
		return false, fmt.Errorf("catalog: unknown word id %d", wordID)
	}
	got := normalize(answer)
	return got == normalize(w.English) || got == strings.TrimSpace(w.Khmer), nil
}

// LatestNews returns up to limit items, optionally filtered by category.
// An empty category means all.
func (c *Catalog) LatestNews(limit int, category string) []NewsItem {
	if limit <= 0 {
		limit = 3
	}
	category = normalize(category)
	var out []NewsItem
	for _, n := range c.news {
		if category != "" && normalize(n.Category) != category {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (c *Catalog) NewsCategories() []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range c.news {
		key := normalize(n.Category)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func (c *Catalog) UpcomingHolidays() []Holiday {
	return c.holidays
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
