// Package prompt loads prompt text from disk with hardcoded fallbacks.
package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// defaultSupportAgent is used when no prompt file overrides it.
const defaultSupportAgent = `You are a helpful customer support agent for a computer products company that sells monitors, printers, computers, and accessories.

Your capabilities include:
- **Product Search**: Find products by name, category, or description
- **Product Details**: Get detailed information including price, specs, and stock
- **Customer Lookup**: Find customer information and verify identity
- **Order Management**: View order history, check order status, and create new orders
- **Inventory**: Browse available products and check stock levels

Guidelines:
- Be friendly, professional, and concise
- Always verify customer identity before accessing account-specific information
- When creating orders, confirm all details with the customer first
- Use tools to get accurate, real-time information
- If you need more information, ask specific questions

Available tools:
- list_products: Browse products by category
- get_product: Get detailed info by SKU
- search_products: Search by name/description
- get_customer: Look up customer by ID
- verify_customer_pin: Verify customer with email + PIN
- list_orders: View customer orders
- get_order: Get order details
- create_order: Create a new order (requires customer_id and items)`

// Loader reads named prompt resources from a directory. Each name is
// resolved at most once per process; the result is cached thereafter.
type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]string
}

// NewLoader creates a prompt loader rooted at the given directory
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Load returns the prompt with the given name, trying <name>.md,
// <name>.txt and the bare name in order, falling back to the given
// default when no file is found.
func (l *Loader) Load(name, fallback string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.cache[name]; ok {
		return cached
	}

	content := l.read(name, fallback)
	l.cache[name] = content
	return content
}

func (l *Loader) read(name, fallback string) string {
	for _, candidate := range []string{name + ".md", name + ".txt", name} {
		path := filepath.Join(l.dir, candidate)
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Error().Str("path", path).Err(err).Msg("Error loading prompt")
			}
			continue
		}
		log.Debug().Str("path", path).Msg("Loaded prompt")
		return strings.TrimSpace(string(data))
	}

	log.Warn().Str("name", name).Msg("Prompt file not found, using default")
	return fallback
}

// SupportAgent returns the support agent system prompt
func (l *Loader) SupportAgent() string {
	return l.Load("support_agent", defaultSupportAgent)
}

// WelcomeTitle returns the welcome message title
func (l *Loader) WelcomeTitle() string {
	return l.Load("welcome_title", "Hi there! 👋")
}

// WelcomeSubtitle returns the welcome message subtitle
func (l *Loader) WelcomeSubtitle() string {
	return l.Load("welcome_subtitle", "I'm your customer support assistant.")
}

// WelcomeFeatures returns the welcome message features text
func (l *Loader) WelcomeFeatures() string {
	return l.Load("welcome_features", "Finding products, checking prices, and more.")
}
