package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chargeroute/chargeroute/internal/geo"
)

// DefaultMongoCollection is the collection holding station documents.
const DefaultMongoCollection = "stations"

// stationDocument is the stored shape of a station. Most fields are optional
// because documents come from several ingest revisions.
type stationDocument struct {
	ID              any                      `bson:"_id"`
	Name            string                   `bson:"name"`
	Operator        string                   `bson:"operator,omitempty"`
	Address         string                   `bson:"address,omitempty"`
	Location        geoJSONPoint             `bson:"location"`
	SlotsAvailable  *int                     `bson:"slotsAvailable,omitempty"`
	TotalSlots      *int                     `bson:"totalSlots,omitempty"`
	Ratings         *ratingsDocument         `bson:"ratings,omitempty"`
	BatterySwapping *batterySwappingDocument `bson:"batterySwapping,omitempty"`
	ChargingPoints  []chargingPointDocument  `bson:"chargingPoints,omitempty"`
	ChargingPower   string                   `bson:"chargingPower,omitempty"`
	Price           string                   `bson:"price,omitempty"`
	OperatingHours  string                   `bson:"operatingHours,omitempty"`
	RushHourData    *rushHourDocument        `bson:"rushHourData,omitempty"`
	IsOperational   *bool                    `bson:"isOperational,omitempty"`
	RealTimeData    *realTimeDocument        `bson:"realTimeData,omitempty"`
	CreatedAt       time.Time                `bson:"createdAt,omitempty"`
	UpdatedAt       time.Time                `bson:"updatedAt,omitempty"`
}

type geoJSONPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type ratingsDocument struct {
	AverageRating float64 `bson:"averageRating"`
	TotalReviews  int     `bson:"totalReviews"`
}

type batterySwappingDocument struct {
	IsAvailable        bool `bson:"isAvailable"`
	AvailableBatteries int  `bson:"availableBatteries"`
}

type chargingPointDocument struct {
	ConnectorType string  `bson:"connectorType"`
	PowerOutput   float64 `bson:"powerOutput"`
	PricePerUnit  float64 `bson:"pricePerUnit"`
}

type rushHourDocument struct {
	PeakHours []PeakWindow `bson:"peakHours"`
}

type realTimeDocument struct {
	CurrentOccupancy  int       `bson:"currentOccupancy"`
	QueueLength       int       `bson:"queueLength"`
	EstimatedWaitTime int       `bson:"estimatedWaitTime"`
	LastUpdated       time.Time `bson:"lastUpdated"`
}

// MongoRepository is a MongoDB implementation of Repository backed by a
// 2dsphere index on the location field.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a new MongoDB station repository.
func NewMongoRepository(db *mongo.Database, collection string) *MongoRepository {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoRepository{coll: db.Collection(collection)}
}

// EnsureIndexes creates the geospatial index required by FindNear.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "location", Value: "2dsphere"}},
	})
	if err != nil {
		return fmt.Errorf("creating 2dsphere index: %w", err)
	}
	return nil
}

// FindNear returns stations within range of the query point, nearest first.
func (r *MongoRepository) FindNear(ctx context.Context, q NearQuery) ([]*Station, error) {
	filter := bson.M{
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": q.Point.Coordinates(),
				},
				"$maxDistance": q.MaxDistanceMeters,
			},
		},
	}
	if q.OperationalOnly {
		filter["isOperational"] = bson.M{"$ne": false}
	}

	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying nearby stations: %w", err)
	}
	return decodeStations(ctx, cursor)
}

// Get retrieves a station by ID.
func (r *MongoRepository) Get(ctx context.Context, id string) (*Station, error) {
	var doc stationDocument
	err := r.coll.FindOne(ctx, idFilter(id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	return doc.toStation(), nil
}

// List retrieves stations ordered by ID with cursor pagination.
func (r *MongoRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	filter := bson.M{}
	if opts.Cursor != "" {
		filter["_id"] = bson.M{"$gt": idValue(opts.Cursor)}
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit + 1))

	cursor, err := r.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	stations, err := decodeStations(ctx, cursor)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Items: stations}
	if len(stations) > limit {
		result.Items = stations[:limit]
		result.NextCursor = stations[limit-1].ID
	}
	return result, nil
}

// Create stores a new station.
func (r *MongoRepository) Create(ctx context.Context, s *Station) error {
	_, err := r.coll.InsertOne(ctx, fromStation(s))
	return err
}

// UpdateOccupancy applies a live state update and returns the updated station.
func (r *MongoRepository) UpdateOccupancy(ctx context.Context, id string, update OccupancyUpdate) (*Station, error) {
	set := bson.M{
		"realTimeData.lastUpdated": update.ObservedAt,
		"updatedAt":                update.ObservedAt,
	}
	if update.CurrentOccupancy != nil {
		set["realTimeData.currentOccupancy"] = *update.CurrentOccupancy
	}
	if update.QueueLength != nil {
		set["realTimeData.queueLength"] = *update.QueueLength
	}
	if update.EstimatedWaitMinutes != nil {
		set["realTimeData.estimatedWaitTime"] = *update.EstimatedWaitMinutes
	}
	if update.SlotsAvailable != nil {
		set["slotsAvailable"] = *update.SlotsAvailable
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc stationDocument
	err := r.coll.FindOneAndUpdate(ctx, idFilter(id), bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	return doc.toStation(), nil
}

// Ping checks connectivity to the station collection's database.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func decodeStations(ctx context.Context, cursor *mongo.Cursor) ([]*Station, error) {
	defer cursor.Close(ctx)

	var stations []*Station
	for cursor.Next(ctx) {
		var doc stationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding station document: %w", err)
		}
		stations = append(stations, doc.toStation())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}

// idValue maps an API id to its stored form. Imported documents use
// ObjectIDs, stations created by this service use string ids.
func idValue(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idFilter(id string) bson.M {
	return bson.M{"_id": idValue(id)}
}

// toStation normalizes a stored document into a Station with defaults.
func (d *stationDocument) toStation() *Station {
	s := &Station{
		Name:           d.Name,
		Operator:       d.Operator,
		Address:        d.Address,
		ChargingPower:  d.ChargingPower,
		Price:          d.Price,
		OperatingHours: d.OperatingHours,
		IsOperational:  d.IsOperational == nil || *d.IsOperational,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}

	switch id := d.ID.(type) {
	case primitive.ObjectID:
		s.ID = id.Hex()
	case string:
		s.ID = id
	default:
		s.ID = fmt.Sprint(id)
	}

	if len(d.Location.Coordinates) == 2 {
		s.Location = geo.Point{Lon: d.Location.Coordinates[0], Lat: d.Location.Coordinates[1]}
	}
	if d.SlotsAvailable != nil {
		s.SlotsAvailable = *d.SlotsAvailable
	}
	s.TotalSlots = s.SlotsAvailable
	if d.TotalSlots != nil {
		s.TotalSlots = *d.TotalSlots
	}
	if d.Ratings != nil {
		s.Rating = d.Ratings.AverageRating
		s.TotalReviews = d.Ratings.TotalReviews
	}
	if d.BatterySwapping != nil {
		s.BatterySwapAvailable = d.BatterySwapping.IsAvailable
		s.AvailableBatteries = d.BatterySwapping.AvailableBatteries
	}
	if d.RushHourData != nil {
		s.PeakWindows = d.RushHourData.PeakHours
	}
	if d.RealTimeData != nil {
		s.Occupancy = &Occupancy{
			CurrentOccupancy:     d.RealTimeData.CurrentOccupancy,
			QueueLength:          d.RealTimeData.QueueLength,
			EstimatedWaitMinutes: d.RealTimeData.EstimatedWaitTime,
			LastUpdated:          d.RealTimeData.LastUpdated,
		}
	}

	var maxPower, minPrice float64
	for _, cp := range d.ChargingPoints {
		if cp.ConnectorType != "" {
			s.ConnectorTypes = append(s.ConnectorTypes, cp.ConnectorType)
		}
		if cp.PowerOutput > maxPower {
			maxPower = cp.PowerOutput
		}
		if cp.PricePerUnit > 0 && (minPrice == 0 || cp.PricePerUnit < minPrice) {
			minPrice = cp.PricePerUnit
		}
	}
	if s.ChargingPower == "" && maxPower > 0 {
		s.ChargingPower = fmt.Sprintf("%.0f kW", maxPower)
	}
	if s.Price == "" && minPrice > 0 {
		s.Price = fmt.Sprintf("%.2f per kWh", minPrice)
	}

	return s
}

// fromStation builds the stored document for s.
func fromStation(s *Station) *stationDocument {
	slots := s.SlotsAvailable
	total := s.TotalSlots
	active := s.IsOperational

	d := &stationDocument{
		ID:       s.ID,
		Name:     s.Name,
		Operator: s.Operator,
		Address:  s.Address,
		Location: geoJSONPoint{
			Type:        "Point",
			Coordinates: s.Location.Coordinates(),
		},
		SlotsAvailable: &slots,
		TotalSlots:     &total,
		Ratings: &ratingsDocument{
			AverageRating: s.Rating,
			TotalReviews:  s.TotalReviews,
		},
		BatterySwapping: &batterySwappingDocument{
			IsAvailable:        s.BatterySwapAvailable,
			AvailableBatteries: s.AvailableBatteries,
		},
		ChargingPower:  s.ChargingPower,
		Price:          s.Price,
		OperatingHours: s.OperatingHours,
		RushHourData:   &rushHourDocument{PeakHours: s.PeakWindows},
		IsOperational:  &active,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	for _, ct := range s.ConnectorTypes {
		d.ChargingPoints = append(d.ChargingPoints, chargingPointDocument{ConnectorType: ct})
	}
	return d
}

// Ensure MongoRepository implements Repository interface.
var _ Repository = (*MongoRepository)(nil)
