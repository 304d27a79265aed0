// Command inspect dumps the badger store as a table, for poking at a
// running installation's data directory.
//
//	go run ./cmd/inspect -db ./data -prefix msg:user:u1:
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"courier/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type options struct {
	// INSPECT_COLOURS enables colorized output for better readability.
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
	// INSPECT_MAX_ROWS caps the dump.
	MaxRows int `envconfig:"INSPECT_MAX_ROWS" default:"200"`
}

func main() {
	dbPath := flag.String("db", "./data", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	var opts options
	if err := envconfig.Process("", &opts); err != nil {
		log.Fatal("Error reading options: ", err)
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(*prefix)); it.ValidForPrefix([]byte(*prefix)); it.Next() {
			if rows == opts.MaxRows {
				break
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				table.Append(mapRow(string(item.Key()), val, opts.Colours))
				return nil
			})
			if err != nil {
				return err
			}
			rows++
		}
		return nil
	})
	if err != nil {
		log.Fatal("Scan failed: ", err)
	}

	if opts.Colours {
		color.Cyan.Printf("%d rows under prefix %q\n\n", rows, *prefix)
	} else {
		fmt.Printf("%d rows under prefix %q\n\n", rows, *prefix)
	}
	table.Render()
}

func mapRow(key string, val []byte, colours bool) []string {
	namespace := "raw"
	timestamp := "--:--:--"
	entityID := "--------"
	detail := "Size: " + strconv.Itoa(len(val)) + " bytes"

	parts := strings.Split(key, ":")
	if len(parts) >= 2 {
		namespace = parts[0] + ":" + parts[1]
	}
	if len(parts) >= 4 {
		if tsNano, err := strconv.ParseInt(parts[len(parts)-2], 10, 64); err == nil {
			timestamp = time.Unix(0, tsNano).UTC().Format("15:04:05")
		}
		entityID = shorten(parts[len(parts)-1])
	}

	switch {
	case strings.HasPrefix(key, "msg:"):
		var m domain.Message
		if err := json.Unmarshal(val, &m); err == nil {
			entityID = shorten(m.ID.String())
			timestamp = m.CreatedAt.Format("15:04:05")
			detail = fmt.Sprintf("%s -> %s read=%v %q", m.SenderID, m.ReceiverID, m.Read, shorten(m.Content))
		}
	case strings.HasPrefix(key, "ntf:unread:"):
		detail = "unread marker"
	case strings.HasPrefix(key, "ntf:"):
		var n domain.Notification
		if err := json.Unmarshal(val, &n); err == nil {
			entityID = shorten(n.ID.String())
			timestamp = n.CreatedAt.Format("15:04:05")
			detail = fmt.Sprintf("[%s] %s read=%v", n.Type, n.Title, n.IsRead)
		}
	}

	if colours {
		namespace = color.Green.Sprint(namespace)
		entityID = color.Yellow.Sprint(entityID)
	}
	return []string{shorten(key), namespace, timestamp, entityID, detail}
}

func shorten(s string) string {
	if len(s) > 48 {
		return s[:48] + "…"
	}
	return s
}
