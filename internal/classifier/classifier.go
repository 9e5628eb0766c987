package classifier

import (
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"energypassport/internal/model"
	"energypassport/internal/parser"
)

// tpTokenRe "ТП" (transformer substation) only as a standalone token
var tpTokenRe = regexp.MustCompile(`(^|[^\p{L}])тп([^\p{L}]|$)`)

// filename pass checks infrastructure data before consumables so that
// "узлы учета электроэнергии" lands on nodes, not electricity
var filenameOrder = []model.ResourceTag{
	model.TagNodes, model.TagEnvelope, model.TagEquipment,
	model.TagElectricity, model.TagGas, model.TagWater,
	model.TagHeat, model.TagFuel, model.TagCoal,
}

// Classifier routes uploads to a resource tag
type Classifier struct {
	matrix *Matrix
}

// New creates a classifier; nil matrix means DefaultMatrix
func New(m *Matrix) *Classifier {
	if m == nil {
		m = DefaultMatrix()
	}
	return &Classifier{matrix: m}
}

// Matrix the matrix the classifier was built with
func (c *Classifier) Matrix() *Matrix {
	return c.matrix
}

// Classify determines the resource tag of a file.
// Order: user hint (unless content confidently disagrees), filename
// patterns, content scoring, then TagOther. Never panics.
func (c *Classifier) Classify(filename string, content *model.RawContent, userHint string) (tag model.ResourceTag) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[classifier] recovered while classifying %q: %v", filename, r)
			tag = model.TagOther
		}
	}()

	if hint := model.ResourceTag(strings.ToLower(strings.TrimSpace(userHint))); hint != "" && hint.Valid() {
		verdict := scoreContent(filename, content)
		if verdict.Tag != model.TagOther && verdict.Tag != hint && verdict.Score >= confidentScore {
			log.Printf("[classifier] hint %q overridden by content %q (score %d) for %s", hint, verdict.Tag, verdict.Score, filename)
			return verdict.Tag
		}
		return hint
	}

	if t := c.ByFilename(filename); t != model.TagOther {
		return t
	}

	if verdict := scoreContent(filename, content); verdict.Tag != model.TagOther {
		log.Printf("[classifier] %s classified by content as %s (score %d)", filename, verdict.Tag, verdict.Score)
		return verdict.Tag
	}
	return model.TagOther
}

// ByFilename filename-only classification
func (c *Classifier) ByFilename(filename string) model.ResourceTag {
	base := parser.NormalizeText(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" || base == "." {
		return model.TagOther
	}
	for _, tag := range filenameOrder {
		if c.matrix.MatchesFilePattern(base, string(tag)) {
			return tag
		}
	}
	if tpTokenRe.MatchString(base) {
		return model.TagElectricity
	}
	return model.TagOther
}
