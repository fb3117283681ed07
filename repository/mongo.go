package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/phillip/charity-campaigns-go/models"
)

const (
	campaignsCollection = "campaigns"
	usersCollection     = "users"

	opTimeout   = 5 * time.Second
	listTimeout = 10 * time.Second
)

// ---------------- CAMPAIGNS ----------------

type MongoCampaigns struct {
	col *mongo.Collection
}

func NewMongoCampaigns(db *mongo.Database) *MongoCampaigns {
	return &MongoCampaigns{col: db.Collection(campaignsCollection)}
}

// EnsureIndexes creates the owner index used by FindByOwner.
func (r *MongoCampaigns) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_by", Value: 1}},
	})
	if err != nil {
		return models.Persistence("campaigns.create_index", err)
	}
	return nil
}

func (r *MongoCampaigns) Insert(ctx context.Context, c *models.Campaign) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Donations == nil {
		c.Donations = []models.Donation{}
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return models.Persistence("campaigns.insert", err)
	}
	return nil
}

func (r *MongoCampaigns) FindAll(ctx context.Context) ([]models.Campaign, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoCampaigns) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Campaign, error) {
	return r.find(ctx, bson.M{"created_by": ownerID})
}

func (r *MongoCampaigns) find(ctx context.Context, filter bson.M) ([]models.Campaign, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, models.Persistence("campaigns.find", err)
	}
	campaigns := []models.Campaign{}
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, models.Persistence("campaigns.decode", err)
	}
	return campaigns, nil
}

func (r *MongoCampaigns) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var c models.Campaign
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, campaignErr("campaigns.find_one", err)
	}
	return &c, nil
}

func (r *MongoCampaigns) ApplyPatch(ctx context.Context, id primitive.ObjectID, patch models.CampaignPatch) (*models.Campaign, error) {
	set := bson.M{"updated_at": time.Now()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Goal != nil {
		set["goal"] = *patch.Goal
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	update := bson.M{"$set": set}
	if patch.ClearEndDate {
		update["$unset"] = bson.M{"end_date": ""}
	} else if patch.EndDate != nil {
		set["end_date"] = *patch.EndDate
	}
	return r.findOneAndUpdate(ctx, "campaigns.update", id, update)
}

func (r *MongoCampaigns) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Persistence("campaigns.delete", err)
	}
	if res.DeletedCount == 0 {
		return models.NotFound("campaign")
	}
	return nil
}

func (r *MongoCampaigns) AppendDonation(ctx context.Context, id primitive.ObjectID, d models.Donation) (*models.Campaign, error) {
	update := bson.M{
		"$push": bson.M{"donations": d},
		"$inc":  bson.M{"raised": d.Amount},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	return r.findOneAndUpdate(ctx, "campaigns.donate", id, update)
}

func (r *MongoCampaigns) findOneAndUpdate(ctx context.Context, op string, id primitive.ObjectID, update bson.M) (*models.Campaign, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.Campaign
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c); err != nil {
		return nil, campaignErr(op, err)
	}
	return &c, nil
}

func (r *MongoCampaigns) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.col.Database().Client().Ping(ctx, nil)
}

func campaignErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NotFound("campaign")
	}
	return models.Persistence(op, err)
}

// ---------------- USERS ----------------

type MongoUsers struct {
	col *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{col: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *MongoUsers) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return models.Persistence("users.create_index", err)
	}
	return nil
}

func (r *MongoUsers) Insert(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return userErr("users.insert", err)
	}
	return nil
}

func (r *MongoUsers) FindAll(ctx context.Context) ([]models.User, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoUsers) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoUsers) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, models.Persistence("users.find", err)
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, models.Persistence("users.decode", err)
	}
	return users, nil
}

func (r *MongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, userErr("users.find_one", err)
	}
	return &u, nil
}

func (r *MongoUsers) ApplyPatch(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}
	if patch.ContactNumber != nil {
		set["contact_number"] = *patch.ContactNumber
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		return nil, userErr("users.update", err)
	}
	return &u, nil
}

func (r *MongoUsers) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Persistence("users.delete", err)
	}
	if res.DeletedCount == 0 {
		return models.NotFound("user")
	}
	return nil
}

func userErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.NotFound("user")
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicateEmail
	default:
		return models.Persistence(op, err)
	}
}
