package services

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
)

var ErrUserNotFound = errors.New("user not found")

const usersCollection = "Users"

func UserExist(ctx context.Context, firestoreClient *firestore.Client, email string) (bool, error) {
	query := firestoreClient.Collection(usersCollection).Where("email", "==", email).Limit(1)
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func GetUserData(ctx context.Context, firestoreClient *firestore.Client, email string) (*firestore.DocumentSnapshot, error) {
	query := firestoreClient.Collection(usersCollection).Where("email", "==", email).Limit(1)
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	return docs[0], nil
}

func GetUserDataByUserid(ctx context.Context, firestoreClient *firestore.Client, userID string) (*firestore.DocumentSnapshot, error) {
	docSnap, err := firestoreClient.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		return nil, err
	}
	if !docSnap.Exists() {
		return nil, ErrUserNotFound
	}
	return docSnap, nil
}
