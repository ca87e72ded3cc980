package text

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Synthetic produces deterministic offline output shaped like what the
// prompts ask for. It keeps every pipeline runnable without credentials.
type Synthetic struct{}

// NewSynthetic returns the offline generator.
func NewSynthetic() *Synthetic { return &Synthetic{} }

// Name implements Generator.
func (*Synthetic) Name() string { return "synthetic" }

// Generate implements Generator.
func (s *Synthetic) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	subject := promptSubject(req.Prompt)
	seed := seedOf(req.Prompt)

	var out string
	switch req.Shape {
	case ShapeJSONList:
		n := req.Items
		if n <= 0 {
			n = 3
		}
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf("%d/%d %s: insight %s-%d", i+1, n, subject, seed[:6], i+1)
		}
		data, _ := json.Marshal(items)
		out = "Here is the thread:\n" + string(data)
	case ShapeGameConcept:
		out = fmt.Sprintf("Name: %s Runner\nAbilities: double jump, dash\nSetting: a world of %s\nGoal: collect every coin", titleWord(subject), subject)
	case ShapeGameCode:
		out = "```javascript\n" + syntheticGameCode + "\n```"
	default:
		paragraphs := []string{
			fmt.Sprintf("This piece explores %s.", subject),
			fmt.Sprintf("At its heart, %s is a story of curiosity and change (ref %s).", subject, seed[:8]),
			fmt.Sprintf("In closing, %s rewards anyone willing to look closer.", subject),
		}
		out = strings.Join(paragraphs, "\n\n")
	}
	return Response{Text: out, Model: "synthetic", TokensUsed: len(strings.Fields(out))}, nil
}

// promptSubject extracts a short subject from the first non-empty prompt
// line: quoted text first, then the text after a colon or after "about".
func promptSubject(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = subjectOf(line)
		line = strings.TrimRight(line, ".")
		if r := []rune(line); len(r) > 80 {
			line = string(r[:80])
		}
		if line != "" {
			return line
		}
	}
	return "the topic"
}

func subjectOf(line string) string {
	if i := strings.Index(line, `"`); i >= 0 {
		if j := strings.Index(line[i+1:], `"`); j > 0 {
			return line[i+1 : i+1+j]
		}
	}
	if i := strings.LastIndex(line, ":"); i >= 0 && i < len(line)-1 {
		return strings.TrimSpace(line[i+1:])
	}
	if i := strings.Index(line, " about "); i >= 0 {
		rest := line[i+len(" about "):]
		if j := strings.Index(rest, " for "); j > 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return line
}

func titleWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "Pixel"
	}
	return cases.Title(language.Und).String(fields[0])
}

func seedOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

const syntheticGameCode = `const player = { x: 50, y: 0, w: 32, h: 32, vy: 0, onGround: false };
const keys = {};
document.addEventListener('keydown', e => { keys[e.code] = true; });
document.addEventListener('keyup', e => { keys[e.code] = false; });

function update() {
  if (keys['ArrowLeft']) player.x -= 4;
  if (keys['ArrowRight']) player.x += 4;
  if (keys['Space'] && player.onGround) { player.vy = -12; player.onGround = false; }
  player.vy += 0.6;
  player.y += player.vy;
  player.onGround = false;
  for (const p of platforms) {
    if (player.x < p.x + p.w && player.x + player.w > p.x &&
        player.y + player.h > p.y && player.y + player.h < p.y + p.h + player.vy + 1 && player.vy >= 0) {
      player.y = p.y - player.h; player.vy = 0; player.onGround = true;
    }
  }
  for (const c of collectibles) {
    if (!c.taken && Math.abs(player.x - c.x) < 24 && Math.abs(player.y - c.y) < 24) { c.taken = true; score++; }
  }
}

let score = 0;
function draw() {
  ctx.clearRect(0, 0, canvas.width, canvas.height);
  ctx.fillStyle = '#445';
  for (const p of platforms) ctx.fillRect(p.x, p.y, p.w, p.h);
  ctx.fillStyle = '#fc0';
  for (const c of collectibles) if (!c.taken) ctx.fillRect(c.x, c.y, 16, 16);
  ctx.fillStyle = '#3af';
  ctx.fillRect(player.x, player.y, player.w, player.h);
  ctx.fillStyle = '#fff';
  ctx.fillText('Score: ' + score, 10, 20);
}

function loop() { update(); draw(); requestAnimationFrame(loop); }
loop();`
