package engine

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// catalogEntry is one registered table.
type catalogEntry struct {
	file    *HeapFile
	desc    *TupleDesc
	pkField string
}

// Catalog is the process-wide registry mapping table id to its backing
// file/schema/primary key, and table name to table id. Lookup is
// read-mostly, so a single mutex guarding plain maps is sufficient.
type Catalog struct {
	mu        sync.RWMutex
	byID      map[int]*catalogEntry
	nameToID  map[string]int
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:     make(map[int]*catalogEntry),
		nameToID: make(map[string]int),
	}
}

// AddTable registers file under name, with pkField as its primary-key
// column name (may be empty if the table has none). The table id is
// file.ID().
func (c *Catalog) AddTable(file *HeapFile, name string, pkField string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[file.ID()] = &catalogEntry{file: file, desc: file.Descriptor(), pkField: pkField}
	c.nameToID[name] = file.ID()
}

func (c *Catalog) GetDatabaseFile(tableID int) (*HeapFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[tableID]
	if !ok {
		return nil, GoDBError{Kind: NotFoundError, Message: fmt.Sprintf("no table with id %d", tableID)}
	}
	return e.file, nil
}

func (c *Catalog) GetTupleDesc(tableID int) (*TupleDesc, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[tableID]
	if !ok {
		return nil, GoDBError{Kind: NotFoundError, Message: fmt.Sprintf("no table with id %d", tableID)}
	}
	return e.desc, nil
}

func (c *Catalog) GetPrimaryKey(tableID int) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[tableID]
	if !ok {
		return "", GoDBError{Kind: NotFoundError, Message: fmt.Sprintf("no table with id %d", tableID)}
	}
	return e.pkField, nil
}

func (c *Catalog) GetTableName(tableID int) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, id := range c.nameToID {
		if id == tableID {
			return name, nil
		}
	}
	return "", GoDBError{Kind: NotFoundError, Message: fmt.Sprintf("no table with id %d", tableID)}
}

func (c *Catalog) GetTableID(name string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.nameToID[name]
	if !ok {
		return 0, GoDBError{Kind: NotFoundError, Message: fmt.Sprintf("no table named %s", name)}
	}
	return id, nil
}

// ListTables returns every registered table name, in no particular
// order.
func (c *Catalog) ListTables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Keys(c.nameToID)
}

// LoadSchemaFile bootstraps the catalog from a text schema file: one
// table per line, `name (col:TYPE [pk], ...)`, TYPE in {int, string}.
// Blank lines are ignored; dataDir names the directory holding each
// table's backing ".dat" file.
func LoadSchemaFile(path string, dataDir string, bp *BufferPool) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newIOError("opening schema file", err)
	}
	defer f.Close()

	cat := NewCatalog()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, fields, pk, err := parseSchemaLine(line)
		if err != nil {
			return nil, err
		}
		td, err := NewTupleDesc(fields)
		if err != nil {
			return nil, err
		}
		backing := dataDir + string(os.PathSeparator) + name + ".dat"
		hf, err := NewHeapFile(backing, td, bp)
		if err != nil {
			return nil, err
		}
		cat.AddTable(hf, name, pk)
	}
	return cat, nil
}

func parseSchemaLine(line string) (name string, fields []FieldType, pk string, err error) {
	open := strings.Index(line, "(")
	close := strings.LastIndex(line, ")")
	if open < 0 || close < 0 || close < open {
		return "", nil, "", GoDBError{Kind: MalformedDataError, Message: fmt.Sprintf("malformed schema line: %s", line)}
	}
	name = strings.TrimSpace(line[:open])
	body := line[open+1 : close]
	for _, col := range strings.Split(body, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		parts := strings.Fields(col)
		nameType := strings.SplitN(parts[0], ":", 2)
		if len(nameType) != 2 {
			return "", nil, "", GoDBError{Kind: MalformedDataError, Message: fmt.Sprintf("malformed column spec: %s", col)}
		}
		var ftype DBType
		switch strings.ToLower(nameType[1]) {
		case "int":
			ftype = IntType
		case "string":
			ftype = StringType
		default:
			return "", nil, "", GoDBError{Kind: MalformedDataError, Message: fmt.Sprintf("unknown column type: %s", nameType[1])}
		}
		fields = append(fields, FieldType{Fname: nameType[0], Ftype: ftype})
		if len(parts) > 1 && parts[1] == "pk" {
			pk = nameType[0]
		}
	}
	return name, fields, pk, nil
}
