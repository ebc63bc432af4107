package docproc

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"course-assistant-be/internal/entity"
)

// Processor turns raw course documents into a Course plus a sentence-aware
// chunk sequence ready for embedding.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	return &Processor{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

var (
	titleRe      = regexp.MustCompile(`(?i)^Course Title:\s*(.+)$`)
	linkRe       = regexp.MustCompile(`(?i)^Course Link:\s*(.+)$`)
	instructorRe = regexp.MustCompile(`(?i)^Course Instructor:\s*(.+)$`)
	lessonRe     = regexp.MustCompile(`(?i)^Lesson\s+(\d+):\s*(.+)$`)
	lessonLinkRe = regexp.MustCompile(`(?i)^Lesson Link:\s*(.+)$`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// ProcessDocument reads a file and parses it into a course and its chunks.
// Invalid UTF-8 bytes are replaced rather than treated as fatal; malformed
// structure degrades to defaults instead of failing.
func (p *Processor) ProcessDocument(filePath string) (*entity.Course, []entity.CourseChunk, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read document: %w", err)
	}

	content := string(raw)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}

	course, chunks := p.ParseContent(content)
	return course, chunks, nil
}

// ParseContent parses an already-decoded document body.
func (p *Processor) ParseContent(content string) (*entity.Course, []entity.CourseChunk) {
	lines := strings.Split(content, "\n")

	course := &entity.Course{}
	idx := 0

	// Header markers may appear in any order before the body starts.
	for idx < len(lines) {
		line := strings.TrimSpace(lines[idx])
		if line == "" {
			idx++
			continue
		}
		if m := titleRe.FindStringSubmatch(line); m != nil {
			course.Title = strings.TrimSpace(m[1])
			idx++
			continue
		}
		if m := linkRe.FindStringSubmatch(line); m != nil {
			course.CourseLink = strings.TrimSpace(m[1])
			idx++
			continue
		}
		if m := instructorRe.FindStringSubmatch(line); m != nil {
			course.Instructor = strings.TrimSpace(m[1])
			idx++
			continue
		}
		break
	}

	// No explicit title marker: the first non-empty line stands in for it.
	if course.Title == "" {
		for ; idx < len(lines); idx++ {
			line := strings.TrimSpace(lines[idx])
			if line != "" {
				course.Title = line
				idx++
				break
			}
		}
	}

	type block struct {
		lessonNumber *int
		text         []string
	}

	var blocks []block
	current := block{}

	flush := func() {
		if len(current.text) > 0 {
			blocks = append(blocks, current)
		}
	}

	for ; idx < len(lines); idx++ {
		line := strings.TrimSpace(lines[idx])

		if m := lessonRe.FindStringSubmatch(line); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			lesson := entity.Lesson{
				LessonNumber: number,
				LessonTitle:  strings.TrimSpace(m[2]),
			}
			if idx+1 < len(lines) {
				if lm := lessonLinkRe.FindStringSubmatch(strings.TrimSpace(lines[idx+1])); lm != nil {
					lesson.LessonLink = strings.TrimSpace(lm[1])
					idx++
				}
			}
			course.Lessons = append(course.Lessons, lesson)
			n := number
			current = block{lessonNumber: &n}
			continue
		}

		if line != "" {
			current.text = append(current.text, line)
		}
	}
	flush()

	var chunks []entity.CourseChunk
	chunkIndex := 0

	for i, b := range blocks {
		pieces := p.ChunkText(strings.Join(b.text, " "))
		last := i == len(blocks)-1

		for _, piece := range pieces {
			text := piece
			if last {
				// The final block carries a synthetic header so retrieval
				// hits stay attributable without their surrounding context.
				if b.lessonNumber != nil {
					text = fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, *b.lessonNumber, piece)
				} else {
					text = fmt.Sprintf("Course %s content: %s", course.Title, piece)
				}
			}
			chunks = append(chunks, entity.CourseChunk{
				Content:      text,
				CourseTitle:  course.Title,
				LessonNumber: b.lessonNumber,
				ChunkIndex:   chunkIndex,
			})
			chunkIndex++
		}
	}

	return course, chunks
}

// ChunkText splits text into sentence-aligned chunks of at most chunkSize
// characters. Consecutive chunks share a word-aligned overlap tail unless
// overlap is zero. A single sentence longer than chunkSize is emitted whole.
func (p *Processor) ChunkText(text string) []string {
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []string
	current := ""

	for _, sentence := range sentences {
		candidate := sentence
		if current != "" {
			candidate = current + " " + sentence
		}

		if len(candidate) > p.chunkSize && current != "" {
			chunks = append(chunks, current)
			// The joining space counts against the overlap budget, so a
			// re-prefixed chunk stays within chunkSize+chunkOverlap.
			if tail := overlapTail(current, p.chunkOverlap-1); tail != "" {
				current = tail + " " + sentence
			} else {
				current = sentence
			}
			continue
		}
		current = candidate
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitSentences breaks text on terminal punctuation followed by whitespace.
// A capitalized token ending in a period directly before another capitalized
// word is treated as an abbreviation ("Dr. Smith") and never split.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && isAbbreviation(runes, i) {
			continue
		}

		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isAbbreviation(runes []rune, period int) bool {
	// Token before the period must be a capitalized word.
	end := period
	begin := end
	for begin > 0 && unicode.IsLetter(runes[begin-1]) {
		begin--
	}
	if begin == end || !unicode.IsUpper(runes[begin]) {
		return false
	}

	// The next word must start with a capital letter.
	next := period + 1
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	return next < len(runes) && unicode.IsUpper(runes[next])
}

// overlapTail returns the longest word-aligned suffix of text that fits in
// limit characters.
func overlapTail(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	words := strings.Fields(text)
	tail := ""
	for i := len(words) - 1; i >= 0; i-- {
		candidate := words[i]
		if tail != "" {
			candidate = words[i] + " " + tail
		}
		if len(candidate) > limit {
			break
		}
		tail = candidate
	}
	return tail
}
