package widgets

import (
	"math/rand/v2"
	"sync"
)

// Quote is an inspirational quote and its author.
type Quote struct {
	Text   string
	Author string
}

var quotes = []Quote{
	{Text: "Do not go where the path may lead, go instead where there is no path and leave a trail.", Author: "Ralph Waldo Emerson"},
	{Text: "The only limit to our realization of tomorrow will be our doubts of today.", Author: "Franklin D. Roosevelt"},
	{Text: "Happiness is not something readymade. It comes from your own actions.", Author: "Dalai Lama"},
	{Text: "What you get by achieving your goals is not as important as what you become by achieving your goals.", Author: "Zig Ziglar"},
	{Text: "It is better to be hated for what you are than to be loved for what you are not.", Author: "André Gide"},
	{Text: "Darkness cannot drive out darkness: only light can do that. Hate cannot drive out hate: only love can do that.", Author: "Martin Luther King Jr."},
	{Text: "If you look at what you have in life, you'll always have more. If you look at what you don't have in life, you'll never have enough.", Author: "Oprah Winfrey"},
	{Text: "The past is a place of reference, not a place of residence; the past is a place of learning, not a place of living.", Author: "Roy T. Bennett"},
	{Text: "Change the world by being yourself.", Author: "Amy Poehler"},
	{Text: "Perfection is not attainable, but if we chase perfection we can catch excellence.", Author: "Vince Lombardi"},
	{Text: "If you can't fly then run, if you can't run then walk, if you can't walk then crawl, but whatever you do you have to keep moving forward.", Author: "Martin Luther King Jr."},
	{Text: "I have not failed. I've just found 10,000 ways that won't work.", Author: "Thomas A. Edison"},
	{Text: "We accept the love we think we deserve.", Author: "Stephen Chbosky"},
	{Text: "The greatest glory in living lies not in never falling, but in rising every time we fall.", Author: "Nelson Mandela"},
	{Text: "In three words I can sum up everything I've learned about life: it goes on.", Author: "Robert Frost"},
	{Text: "You must do the things you think you cannot do.", Author: "Eleanor Roosevelt"},
	{Text: "Keep your eyes on the stars, and your feet on the ground.", Author: "Theodore Roosevelt"},
	{Text: "Tough times never last, but tough people do.", Author: "Robert H. Schuller"},
	{Text: "The best and most beautiful things in the world cannot be seen or even touched - they must be felt with the heart.", Author: "Helen Keller"},
	{Text: "We are what we repeatedly do. Excellence, then, is not an act, but a habit.", Author: "Aristotle"},
	{Text: "It does not matter how slowly you go as long as you do not stop.", Author: "Confucius"},
	{Text: "Try to be a rainbow in someone's cloud.", Author: "Maya Angelou"},
	{Text: "You miss 100% of the shots you don't take.", Author: "Wayne Gretzky"},
	{Text: "The mind is its own place, and in itself can make a heaven of hell, a hell of heaven.", Author: "John Milton"},
	{Text: "Build your own dreams, or someone else will hire you to build theirs.", Author: "Farrah Gray"},
	{Text: "A reader lives a thousand lives before he dies . . . The man who never reads lives only one.", Author: "George R.R. Martin"},
	{Text: "Our greatest weakness lies in giving up. The most certain way to succeed is always to try just one more time.", Author: "Thomas A. Edison"},
	{Text: "Be yourself; everyone else is already taken.", Author: "Oscar Wilde"},
	{Text: "The measure of a man is what he does with power.", Author: "Plato"},
	{Text: "It is during our darkest moments that we must focus to see the light.", Author: "Aristotle Onassis"},
}

// Quotes returns a copy of the built-in collection.
func Quotes() []Quote {
	return append([]Quote(nil), quotes...)
}

// Generator hands out quotes from a fixed collection.
type Generator struct {
	mu      sync.Mutex
	quotes  []Quote
	current Quote
	intn    func(n int) int
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithIntn replaces the uniform index source.
func WithIntn(intn func(n int) int) GeneratorOption {
	return func(g *Generator) {
		if intn != nil {
			g.intn = intn
		}
	}
}

// WithQuotes replaces the built-in collection. An empty slice is ignored.
func WithQuotes(collection []Quote) GeneratorOption {
	return func(g *Generator) {
		if len(collection) > 0 {
			g.quotes = append([]Quote(nil), collection...)
		}
	}
}

// NewGenerator returns a generator whose current quote is the first entry.
func NewGenerator(options ...GeneratorOption) *Generator {
	generator := &Generator{quotes: quotes, intn: rand.IntN}
	for _, option := range options {
		option(generator)
	}
	generator.current = generator.quotes[0]
	return generator
}

// Current returns the quote shown last.
func (g *Generator) Current() Quote {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Next picks a quote uniformly at random and makes it current. Repeats are
// allowed.
func (g *Generator) Next() Quote {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = g.quotes[g.intn(len(g.quotes))]
	return g.current
}
