package mongodb

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/blog-platform/internal/repository"
)

// postFilter translates a repository.PostFilter into a query document.
//
//	{ title:    { $regex: <escaped search>, $options: "i" },
//	  postTags: { $in: [...] },
//	  author:   { $in: [...] } }
//
// Search text is escaped with regexp.QuoteMeta so it matches literally.
func postFilter(f repository.PostFilter) bson.M {
	q := bson.M{}

	if f.TitleSearch != "" {
		q["title"] = bson.M{"$regex": primitive.Regex{
			Pattern: regexp.QuoteMeta(f.TitleSearch),
			Options: "i",
		}}
	}
	if len(f.Tags) > 0 {
		q["postTags"] = bson.M{"$in": f.Tags}
	}
	if f.AuthorIDs != nil {
		// non-nil, so an empty set encodes as [] and matches no document
		q["author"] = bson.M{"$in": f.AuthorIDs}
	}
	return q
}

// postSort orders by creation time, ties broken by _id in the same direction.
func postSort(ascending bool) bson.D {
	dir := -1
	if ascending {
		dir = 1
	}
	return bson.D{{Key: "createdAt", Value: dir}, {Key: "_id", Value: dir}}
}
