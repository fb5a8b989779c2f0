// Package cupboard is an embedded, transactional object store: a
// directory on disk holds a catalog of named shelves (primary record
// collections) and their secondary indexes, opened once per process
// and safe for concurrent use by arbitrary caller goroutines.
//
// A minimal session looks like:
//
//	cb, err := cupboard.Open("/var/lib/myapp/data", nil)
//	...
//	defer cb.Close()
//
//	shelf, err := cb.GetShelf("books", cupboard.ShelfOptions{})
//	book := cupboard.MakeInstance(bookShape, map[string]interface{}{
//		"title": "Dune", "isbn": "9780441013593", "year": 1965,
//	}, cupboard.InstanceOptions{})
//	err = shelf.Save(book, nil)
//
// Every operation accepts an optional transaction handle obtained from
// Begin or WithTxn; a nil transaction means "no transaction in force"
// and each call runs against its own implicit unit of work.
package cupboard
