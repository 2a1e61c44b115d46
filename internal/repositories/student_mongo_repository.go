package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"studentrecords/internal/apperrors"
	"studentrecords/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StudentsCollection is the MongoDB collection holding student documents.
const StudentsCollection = "students"

// studentDocument is the stored shape of a student. isDeleted is persisted
// next to deletedAt so listing can filter on an indexed boolean.
type studentDocument struct {
	ID          string     `bson:"_id"`
	FirstName   string     `bson:"firstName"`
	LastName    string     `bson:"lastName"`
	Email       string     `bson:"email"`
	PhoneNumber *string    `bson:"phoneNumber,omitempty"`
	Gender      string     `bson:"gender"`
	Birthdate   *time.Time `bson:"birthdate,omitempty"`
	IsDeleted   bool       `bson:"isDeleted"`
	DeletedAt   *time.Time `bson:"deletedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

func newStudentDocument(s *models.Student) studentDocument {
	return studentDocument{
		ID:          s.ID,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Email:       s.Email,
		PhoneNumber: s.PhoneNumber,
		Gender:      s.Gender,
		Birthdate:   s.Birthdate,
		IsDeleted:   s.IsDeleted(),
		DeletedAt:   s.DeletedAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (d studentDocument) toModel() models.Student {
	s := models.Student{
		ID:          d.ID,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Email:       d.Email,
		PhoneNumber: d.PhoneNumber,
		Gender:      d.Gender,
		Birthdate:   d.Birthdate,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.IsDeleted {
		at := d.UpdatedAt
		if d.DeletedAt != nil {
			at = *d.DeletedAt
		}
		s.MarkDeleted(at)
	}
	return s
}

// MongoStudentRepository is a MongoDB implementation of StudentRepository.
type MongoStudentRepository struct {
	coll *mongo.Collection
}

// NewMongoStudentRepository creates a new instance of MongoStudentRepository.
func NewMongoStudentRepository(db *mongo.Database) *MongoStudentRepository {
	return &MongoStudentRepository{
		coll: db.Collection(StudentsCollection),
	}
}

// EnsureIndexes creates the unique email index and the listing indexes.
func (r *MongoStudentRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		{Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("status_created")},
	})
	if err != nil {
		return fmt.Errorf("failed to create student indexes: %w", err)
	}
	return nil
}

func studentFilter(q StudentQuery) bson.M {
	filter := bson.M{}
	if !q.IncludeDeleted {
		filter["isDeleted"] = false
	}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"firstName": re},
			bson.M{"lastName": re},
			bson.M{"email": re},
		}
	}
	return filter
}

// Find retrieves the students matching q, newest first.
func (r *MongoStudentRepository) Find(ctx context.Context, q StudentQuery) ([]models.Student, int64, error) {
	filter := studentFilter(q)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}
	if q.Offset < 0 {
		return []models.Student{}, total, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Offset))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find students: %w", err)
	}
	var docs []studentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode students: %w", err)
	}

	students := make([]models.Student, 0, len(docs))
	for _, d := range docs {
		students = append(students, d.toModel())
	}
	return students, total, nil
}

func (r *MongoStudentRepository) findOne(ctx context.Context, filter bson.M) (*models.Student, error) {
	var doc studentDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, err
	}
	s := doc.toModel()
	return &s, nil
}

// GetByID retrieves a single student by its ID.
func (r *MongoStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	s, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("student with ID %s: %w", id, apperrors.ErrStudentNotFound)
		}
		return nil, fmt.Errorf("failed to get student by ID %s: %w", id, err)
	}
	return s, nil
}

// GetByEmail retrieves a single student by email, deleted or not.
func (r *MongoStudentRepository) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	s, err := r.findOne(ctx, bson.M{"email": email})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("student with email %s: %w", email, apperrors.ErrStudentNotFound)
		}
		return nil, fmt.Errorf("failed to get student by email %s: %w", email, err)
	}
	return s, nil
}

// Create inserts a new student document.
func (r *MongoStudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.UpdatedAt.IsZero() {
		student.UpdatedAt = student.CreatedAt
	}

	if _, err := r.coll.InsertOne(ctx, newStudentDocument(student)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create student: %w", apperrors.ErrEmailAlreadyExists)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// Update replaces the stored document, keeping its creation time.
func (r *MongoStudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	doc := newStudentDocument(student)

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": student.ID}, bson.M{
		"$set": bson.M{
			"firstName":   doc.FirstName,
			"lastName":    doc.LastName,
			"email":       doc.Email,
			"phoneNumber": doc.PhoneNumber,
			"gender":      doc.Gender,
			"birthdate":   doc.Birthdate,
			"isDeleted":   doc.IsDeleted,
			"deletedAt":   doc.DeletedAt,
			"updatedAt":   doc.UpdatedAt,
		},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to update student: %w", apperrors.ErrEmailAlreadyExists)
		}
		return fmt.Errorf("failed to update student: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("student with ID %s not updated: %w", student.ID, apperrors.ErrStudentNotFound)
	}
	return nil
}

// Delete permanently removes a student document.
func (r *MongoStudentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete student: %w", err)
	}
	return res.DeletedCount > 0, nil
}
