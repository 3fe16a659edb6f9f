package models

const (
	TypePing              = "PING"
	TypeInsert            = "INSERT"
	TypeNamedInsert       = "NAMED_INSERT"
	TypeGet               = "GET"
	TypeRemove            = "REMOVE"
	TypeKNearestNeighbors = "KNN"
	TypeVectorAdd         = "VADD"
	TypeVectorSub         = "VSUB"
	TypeVectorScale       = "VSCALE"
	TypeCosineSimilarity  = "VCOSINE"
	TypeDump              = "DUMP"
)

// Command is one parsed protocol request. The set of implementations is
// closed to this package.
type Command interface {
	Type() string
	isCommand()
}

type Ping struct{}

// Insert stores Vector under a generated key.
type Insert struct {
	Vector []float32
}

type NamedInsert struct {
	Key    string
	Vector []float32
}

type Get struct {
	Key string
}

type Remove struct {
	Key string
}

// KNearestNeighbors asks for the K vectors closest to the one stored under Key.
type KNearestNeighbors struct {
	Key string
	K   int
}

type VectorAdd struct {
	Key1, Key2 string
}

// VectorSub computes Key1 - Key2.
type VectorSub struct {
	Key1, Key2 string
}

type VectorScale struct {
	Key    string
	Scalar float32
}

type CosineSimilarity struct {
	Key1, Key2 string
}

// Dump exports the store to Path.
type Dump struct {
	Path string
}

func (Ping) Type() string              { return TypePing }
func (Insert) Type() string            { return TypeInsert }
func (NamedInsert) Type() string       { return TypeNamedInsert }
func (Get) Type() string               { return TypeGet }
func (Remove) Type() string            { return TypeRemove }
func (KNearestNeighbors) Type() string { return TypeKNearestNeighbors }
func (VectorAdd) Type() string         { return TypeVectorAdd }
func (VectorSub) Type() string         { return TypeVectorSub }
func (VectorScale) Type() string       { return TypeVectorScale }
func (CosineSimilarity) Type() string  { return TypeCosineSimilarity }
func (Dump) Type() string              { return TypeDump }

func (Ping) isCommand()              {}
func (Insert) isCommand()            {}
func (NamedInsert) isCommand()       {}
func (Get) isCommand()               {}
func (Remove) isCommand()            {}
func (KNearestNeighbors) isCommand() {}
func (VectorAdd) isCommand()         {}
func (VectorSub) isCommand()         {}
func (VectorScale) isCommand()       {}
func (CosineSimilarity) isCommand()  {}
func (Dump) isCommand()              {}
