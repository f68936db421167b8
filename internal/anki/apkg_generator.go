package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// APKGGenerator creates Anki package files (.apkg)
type APKGGenerator struct {
	deckName     string
	description  string
	tags         []string
	reverse      bool
	deckID       int64
	modelID      int64
	cards        []Card
	mediaFiles   map[string]int // Anki media name -> numbered file in the package
	mediaNames   map[string]string
	mediaCounter int
}

// NewAPKGGenerator creates a new APKG generator
func NewAPKGGenerator(deckName string) *APKGGenerator {
	now := time.Now().UnixMilli()
	return &APKGGenerator{
		deckName:   deckName,
		deckID:     now,
		modelID:    now + 1,
		cards:      make([]Card, 0),
		mediaFiles: make(map[string]int),
		mediaNames: make(map[string]string),
	}
}

// SetDescription sets the deck description shown in Anki
func (g *APKGGenerator) SetDescription(desc string) {
	g.description = desc
}

// SetTags sets the tags attached to every note
func (g *APKGGenerator) SetTags(tags []string) {
	g.tags = tags
}

// SetReverse also generates a Back -> Front card per note
func (g *APKGGenerator) SetReverse(reverse bool) {
	g.reverse = reverse
}

// AddCard adds a card to the generator
func (g *APKGGenerator) AddCard(card Card) {
	g.cards = append(g.cards, card)
}

// GenerateAPKG creates an .apkg file
func (g *APKGGenerator) GenerateAPKG(outputPath string) error {
	tempDir, err := os.MkdirTemp("", "cardstudio_export_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Media first: the note fields refer to the names assigned here
	if err := g.copyMediaFiles(tempDir); err != nil {
		return fmt.Errorf("failed to copy media files: %w", err)
	}

	if err := g.createMediaMapping(tempDir); err != nil {
		return fmt.Errorf("failed to create media mapping: %w", err)
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := g.createDatabase(dbPath); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	if err := g.createZipPackage(tempDir, outputPath); err != nil {
		return fmt.Errorf("failed to create zip package: %w", err)
	}

	return nil
}

func (g *APKGGenerator) createDatabase(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, query := range schema {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	if err := g.insertCollection(tx); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	if err := g.insertNotesAndCards(tx); err != nil {
		return fmt.Errorf("failed to insert notes and cards: %w", err)
	}

	return tx.Commit()
}

// schema is the Anki 2.1 (schema 11) collection layout
var schema = []string{
	`CREATE TABLE col (
		id integer PRIMARY KEY,
		crt integer NOT NULL,
		mod integer NOT NULL,
		scm integer NOT NULL,
		ver integer NOT NULL,
		dty integer NOT NULL,
		usn integer NOT NULL,
		ls integer NOT NULL,
		conf text NOT NULL,
		models text NOT NULL,
		decks text NOT NULL,
		dconf text NOT NULL,
		tags text NOT NULL
	)`,
	`CREATE TABLE notes (
		id integer PRIMARY KEY,
		guid text NOT NULL,
		mid integer NOT NULL,
		mod integer NOT NULL,
		usn integer NOT NULL,
		tags text NOT NULL,
		flds text NOT NULL,
		sfld text NOT NULL,
		csum integer NOT NULL,
		flags integer NOT NULL,
		data text NOT NULL
	)`,
	`CREATE TABLE cards (
		id integer PRIMARY KEY,
		nid integer NOT NULL,
		did integer NOT NULL,
		ord integer NOT NULL,
		mod integer NOT NULL,
		usn integer NOT NULL,
		type integer NOT NULL,
		queue integer NOT NULL,
		due integer NOT NULL,
		ivl integer NOT NULL,
		factor integer NOT NULL,
		reps integer NOT NULL,
		lapses integer NOT NULL,
		left integer NOT NULL,
		odue integer NOT NULL,
		odid integer NOT NULL,
		flags integer NOT NULL,
		data text NOT NULL
	)`,
	`CREATE TABLE revlog (
		id integer PRIMARY KEY,
		cid integer NOT NULL,
		usn integer NOT NULL,
		ease integer NOT NULL,
		ivl integer NOT NULL,
		lastIvl integer NOT NULL,
		factor integer NOT NULL,
		time integer NOT NULL,
		type integer NOT NULL
	)`,
	`CREATE TABLE graves (
		usn integer NOT NULL,
		oid integer NOT NULL,
		type integer NOT NULL
	)`,
	`CREATE INDEX ix_notes_csum ON notes (csum)`,
	`CREATE INDEX ix_notes_usn ON notes (usn)`,
	`CREATE INDEX ix_cards_usn ON cards (usn)`,
	`CREATE INDEX ix_cards_nid ON cards (nid)`,
	`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
	`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
	`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
}

func deckEntry(id int64, name, desc string, mod int64) map[string]any {
	return map[string]any{
		"id":               id,
		"name":             name,
		"mod":              mod,
		"desc":             desc,
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

func (g *APKGGenerator) insertCollection(tx *sql.Tx) error {
	now := time.Now().Unix()

	decks := map[string]any{
		"1":                             deckEntry(1, "Default", "", now),
		strconv.FormatInt(g.deckID, 10): deckEntry(g.deckID, g.deckName, g.description, now),
	}
	models := map[string]any{
		strconv.FormatInt(g.modelID, 10): g.noteType(),
	}
	conf := map[string]any{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      strconv.FormatInt(g.modelID, 10),
		"dayLearnFirst": false,
	}
	dconf := map[string]any{
		"1": map[string]any{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]any{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]any{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]any{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      now,
			"autoplay": true,
			"replayq":  true,
		},
	}

	blobs := make([]string, 0, 4)
	for _, v := range []any{conf, models, decks, dconf} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode collection config: %w", err)
		}
		blobs = append(blobs, string(b))
	}

	_, err := tx.Exec(`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1,        // id
		now,      // crt
		now*1000, // mod
		now*1000, // scm
		11,       // ver
		0,        // dty
		0,        // usn
		0,        // ls
		blobs[0], blobs[1], blobs[2], blobs[3],
		"{}", // tags
	)
	return err
}

func field(name string, ord int) map[string]any {
	return map[string]any{
		"name":   name,
		"ord":    ord,
		"sticky": false,
		"rtl":    false,
		"font":   "Arial",
		"size":   20,
		"media":  []string{},
	}
}

func template(name string, ord int, question, answer string) map[string]any {
	return map[string]any{
		"name":  name,
		"ord":   ord,
		"qfmt":  fmt.Sprintf(`<div class="face">{{%s}}</div>`, question),
		"afmt":  fmt.Sprintf("{{FrontSide}}\n\n<hr id=\"answer\">\n\n<div class=\"face\">{{%s}}</div>", answer),
		"did":   nil,
		"bqfmt": "",
		"bafmt": "",
	}
}

// noteType is a Front/Back model with an optional reverse template
func (g *APKGGenerator) noteType() map[string]any {
	tmpls := []map[string]any{template("Forward", 0, "Front", "Back")}
	req := []any{[]any{0, "all", []int{0}}}
	name := "Card Studio (Basic)"
	if g.reverse {
		tmpls = append(tmpls, template("Reverse", 1, "Back", "Front"))
		req = append(req, []any{1, "all", []int{1}})
		name = "Card Studio (Basic + Reverse)"
	}

	return map[string]any{
		"id":    g.modelID,
		"name":  name,
		"type":  0,
		"mod":   time.Now().Unix(),
		"usn":   -1,
		"sortf": 0,
		"did":   g.deckID,
		"req":   req,
		"vers":  []int{},
		"tags":  []string{},
		"latexPre": `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}`,
		"latexPost": `\end{document}`,
		"flds":      []map[string]any{field("Front", 0), field("Back", 1)},
		"tmpls":     tmpls,
		"css": `.card {
  font-family: Arial, sans-serif;
  font-size: 24px;
  text-align: center;
  color: #333;
  background-color: white;
}

.face {
  padding: 20px;
}

.face img {
  max-width: 100%;
  height: auto;
  border-radius: 8px;
}

hr#answer {
  margin: 30px 0;
  border: 0;
  border-top: 1px solid #ecf0f1;
}`,
	}
}

func (g *APKGGenerator) insertNotesAndCards(tx *sql.Tx) error {
	now := time.Now()
	tags := ""
	if len(g.tags) > 0 {
		tags = " " + strings.Join(g.tags, " ") + " "
	}

	noteStmt, err := tx.Prepare(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer noteStmt.Close()

	cardStmt, err := tx.Prepare(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cardStmt.Close()

	for i, card := range g.cards {
		// Three IDs per note: the note itself and up to two cards
		noteID := now.UnixMilli() + int64(i*3)

		front := renderFace(card.Front, g.mediaName)
		back := renderFace(card.Back, g.mediaName)
		guid := fmt.Sprintf("cs_%d_%d", g.deckID, card.Number)

		if _, err := noteStmt.Exec(
			noteID,            // id
			guid,              // guid
			g.modelID,         // mid
			now.Unix(),        // mod
			-1,                // usn
			tags,              // tags
			front+"\x1f"+back, // flds
			front,             // sfld
			0,                 // csum
			0,                 // flags
			"",                // data
		); err != nil {
			return fmt.Errorf("failed to insert note %d: %w", card.Number, err)
		}

		ords := []int{0}
		if g.reverse {
			ords = append(ords, 1)
		}
		for _, ord := range ords {
			cardID := noteID + 1 + int64(ord)
			if _, err := cardStmt.Exec(
				cardID, noteID, g.deckID, ord,
				now.Unix(), // mod
				-1,         // usn
				0,          // type: new
				0,          // queue: new
				cardID,     // due: position for new cards
				0, 0, 0, 0, 0, 0, 0, 0,
				"",
			); err != nil {
				return fmt.Errorf("failed to insert card %d/%d: %w", card.Number, ord, err)
			}
		}
	}

	return nil
}

// mediaName returns the package-unique name a media file was stored as,
// or "" when the file was missing.
func (g *APKGGenerator) mediaName(path string) string {
	return g.mediaNames[path]
}

func (g *APKGGenerator) copyMediaFiles(tempDir string) error {
	add := func(number int, side, path string) error {
		if path == "" || !fileExists(path) {
			return nil
		}
		if _, done := g.mediaNames[path]; done {
			return nil
		}

		name := fmt.Sprintf("cs%d_%s_%s", number, side, filepath.Base(path))
		target := filepath.Join(tempDir, strconv.Itoa(g.mediaCounter))
		if err := copyFile(path, target); err != nil {
			return fmt.Errorf("failed to copy %s: %w", path, err)
		}
		g.mediaFiles[name] = g.mediaCounter
		g.mediaNames[path] = name
		g.mediaCounter++
		return nil
	}

	for _, card := range g.cards {
		for _, media := range []struct {
			side string
			face Face
		}{{"front", card.Front}, {"back", card.Back}} {
			if err := add(card.Number, media.side, media.face.ImageFile); err != nil {
				return err
			}
			if err := add(card.Number, media.side, media.face.AudioFile); err != nil {
				return err
			}
		}
	}

	return nil
}

// createMediaMapping writes the "media" index (number -> file name)
func (g *APKGGenerator) createMediaMapping(tempDir string) error {
	mapping := make(map[string]string, len(g.mediaFiles))
	for filename, num := range g.mediaFiles {
		mapping[strconv.Itoa(num)] = filename
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(tempDir, "media"), data, 0644)
}

func (g *APKGGenerator) createZipPackage(tempDir, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	archive := zip.NewWriter(zipFile)

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addToZip(archive, tempDir, entry.Name()); err != nil {
			return err
		}
	}

	return archive.Close()
}

func addToZip(archive *zip.Writer, dir, name string) error {
	writer, err := archive.Create(name)
	if err != nil {
		return err
	}

	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
