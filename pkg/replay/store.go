package replay

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ensi/pkg/command"
	"ensi/pkg/ensimodel"
)

// mongoBatchSize mirrors the teacher's SaveMapTiles batching constant;
// a replay's Entries list can run into the tens of thousands of
// commands for a long game, so it's written the same way: sliced into
// fixed-size InsertMany batches rather than one giant insert.
const mongoBatchSize = 1000

// entryDoc is the bson shape of one stored Entry, keyed by the game it
// belongs to so a single collection can hold many games' replays.
type entryDoc struct {
	GameID  string `bson:"gameId"`
	Turn    uint32 `bson:"turn"`
	Command entryCommand `bson:"command"`
}

type entryCommand struct {
	Submitter uint8  `bson:"submitter"`
	Kind      uint8  `bson:"kind"`
	FromX     uint16 `bson:"fromX"`
	FromY     uint16 `bson:"fromY"`
	ToX       uint16 `bson:"toX"`
	ToY       uint16 `bson:"toY"`
	Count     uint32 `bson:"count"`
	TileX     uint16 `bson:"tileX"`
	TileY     uint16 `bson:"tileY"`
}

type headerDoc struct {
	GameID     string `bson:"gameId"`
	Seed       uint64 `bson:"seed"`
	Width      int    `bson:"width"`
	Height     int    `bson:"height"`
	NumPlayers int    `bson:"numPlayers"`
}

// Store persists replays to MongoDB, grounded directly on the teacher's
// MongoRepository: a *mongo.Database handle plus one collection per
// concern, populated with ctx-scoped calls and connection verified via
// Ping at construction time.
type Store struct {
	client      *mongo.Client
	headers     *mongo.Collection
	entries     *mongo.Collection
}

// NewStore connects to uri and opens dbName, mirroring
// NewMongoRepository's connect-then-ping pattern.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	return &Store{
		client:  client,
		headers: db.Collection("replay_headers"),
		entries: db.Collection("replay_entries"),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Save writes l under gameID, batching the Entries insert exactly like
// the teacher's SaveMapTiles (batchSize 1000, slice-and-InsertMany per
// batch) since a replay's entry count can run well past a single
// InsertMany call's practical size.
func (s *Store) Save(ctx context.Context, gameID string, l *Log) error {
	if _, err := s.headers.InsertOne(ctx, headerDoc{
		GameID: gameID, Seed: l.Header.Seed,
		Width: l.Header.Width, Height: l.Header.Height, NumPlayers: l.Header.NumPlayers,
	}); err != nil {
		return fmt.Errorf("save header: %v", err)
	}

	docs := make([]interface{}, len(l.Entries))
	for i, e := range l.Entries {
		docs[i] = entryDoc{
			GameID: gameID,
			Turn:   e.Turn,
			Command: entryCommand{
				Submitter: uint8(e.Command.Submitter),
				Kind:      uint8(e.Command.Kind),
				FromX:     e.Command.From.X, FromY: e.Command.From.Y,
				ToX: e.Command.To.X, ToY: e.Command.To.Y,
				Count: e.Command.Count,
				TileX: e.Command.Tile.X, TileY: e.Command.Tile.Y,
			},
		}
	}

	for i := 0; i < len(docs); i += mongoBatchSize {
		end := i + mongoBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if end == i {
			continue
		}
		if _, err := s.entries.InsertMany(ctx, docs[i:end]); err != nil {
			return fmt.Errorf("save entries batch %d-%d: %v", i, end, err)
		}
	}
	return nil
}

// Load reconstructs a Log for gameID, reading the header with FindOne
// and the entries with Find+cursor.All, mirroring the teacher's
// GetMapTiles pattern.
func (s *Store) Load(ctx context.Context, gameID string) (*Log, error) {
	var h headerDoc
	if err := s.headers.FindOne(ctx, bson.M{"gameId": gameID}).Decode(&h); err != nil {
		return nil, fmt.Errorf("load header: %v", err)
	}

	cursor, err := s.entries.Find(ctx, bson.M{"gameId": gameID})
	if err != nil {
		return nil, fmt.Errorf("load entries: %v", err)
	}
	var docs []entryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode entries: %v", err)
	}

	l := NewLog(h.Seed, h.Width, h.Height, h.NumPlayers)
	for _, d := range docs {
		l.Entries = append(l.Entries, entryFromDoc(d))
	}
	return l, nil
}

func entryFromDoc(d entryDoc) Entry {
	return Entry{
		Turn: d.Turn,
		Command: command.Command{
			Submitter: ensimodel.PlayerID(d.Command.Submitter),
			Kind:      command.Kind(d.Command.Kind),
			From:      ensimodel.Coord{X: d.Command.FromX, Y: d.Command.FromY},
			To:        ensimodel.Coord{X: d.Command.ToX, Y: d.Command.ToY},
			Count:     d.Command.Count,
			Tile:      ensimodel.Coord{X: d.Command.TileX, Y: d.Command.TileY},
		},
	}
}
