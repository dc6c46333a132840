package service

import (
	"fmt"
	"strings"

	"github.com/d60-Lab/tradetok/internal/model"
)

func picsum(seed string, w, h int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/%d/%d", seed, w, h)
}

// SeedUsers 初始用户目录
func SeedUsers() []model.User {
	mk := func(id, username string, plan model.Plan, banner string) model.User {
		return model.User{
			ID:        id,
			Username:  username,
			Email:     fmt.Sprintf("%s@example.com", strings.ToLower(username)),
			AvatarURL: picsum(id, 48, 48),
			Plan:      plan,
			BannerURL: picsum(banner, 600, 200),
		}
	}
	return []model.User{
		mk("u1", "VintageFinds", model.PlanPremium, "b1"),
		mk("u2", "RetroGamer", model.PlanStandard, "b2"),
		mk("u3", "ArtCollector", model.PlanBasic, "b3"),
		mk("u4", "CoinMaster", model.PlanPremium, "b4"),
	}
}

// SeedItems 初始商品，按发布先后排列（最旧在前）
func SeedItems(users []model.User) []model.Item {
	type row struct {
		id, title, desc string
		owner           int
		extra           []string
		likes, comments int
		value           float64
	}
	rows := []row{
		{"i1", "Vintage Leather Armchair", "Classic 1950s leather armchair. In great condition, perfect for a reading nook. Minor wear on the right armrest adds to its character. A timeless piece for any living room.", 0, []string{"i1-2", "i1-3"}, 1204, 88, 450},
		{"i2", "Nintendo 64 Console Bundle", "Original Nintendo 64 console with two controllers and GoldenEye 007. A true classic! Fully tested and working. Comes with all necessary cables.", 1, []string{"i2-back"}, 3450, 256, 200},
		{"i3", "Signed Abstract Painting", "Signed abstract painting by a local artist. Vibrant colors, a real statement piece. Measures 24x36 inches. Perfect for modern home decor.", 2, nil, 876, 42, 1200},
		{"i4", "Rare Silver Dollar Collection", "A collection of 10 rare Morgan silver dollars from the 1880s. Graded and preserved in capsules. A must-have for any serious numismatist.", 3, nil, 2150, 150, 3500},
		{"i5", "Antique Gramophone", "Working 1920s HMV gramophone. Beautiful wooden cabinet and brass horn. Includes a collection of 20 vintage records.", 0, nil, 950, 65, 800},
		{"i6", "Sega Genesis with 10 Games", "The rival to the SNES. Comes with Sonic the Hedgehog 1 & 2, Streets of Rage, and more. All in original boxes.", 1, nil, 1800, 190, 250},
		{"i7", "Handcrafted Wooden Chess Set", "Exquisite, hand-carved wooden chess set from Eastern Europe. Each piece is a work of art. The board itself is inlaid with walnut and maple.", 2, nil, 730, 33, 300},
		{"i8", "19th Century Telescope", "A beautiful brass telescope on a mahogany tripod. Still functional, offers clear views of the moon and planets. Made by renowned London opticians.", 3, nil, 1100, 95, 1800},
		{"i9", "Set of 4 Eames Style Chairs", "Mid-century modern dining chairs. Replica, but high-quality. Perfect condition, barely used. A design icon.", 0, nil, 600, 50, 400},
	}

	out := make([]model.Item, 0, len(rows))
	for _, r := range rows {
		cover := picsum(r.id, 400, 700)
		images := []string{cover}
		for _, e := range r.extra {
			images = append(images, picsum(e, 400, 700))
		}
		var owner model.User
		if r.owner < len(users) {
			owner = users[r.owner].Public()
		}
		out = append(out, model.Item{
			ID:          r.id,
			User:        owner,
			ImageURL:    cover,
			Images:      images,
			Title:       r.title,
			Description: r.desc,
			Likes:       r.likes,
			Comments:    r.comments,
			Value:       r.value,
		})
	}
	return out
}

// SeedReviews 初始店铺评价
func SeedReviews(users []model.User) []model.Review {
	at := func(i int) model.User {
		if i < len(users) {
			return users[i].Public()
		}
		return model.User{}
	}
	return []model.Review{
		{ID: "r1", TargetUserID: "u1", Reviewer: at(1), Rating: 5, Text: "Item arrived exactly as described. Fast shipping!", CreatedAt: "2 days ago"},
		{ID: "r2", TargetUserID: "u1", Reviewer: at(2), Rating: 4, Text: "Great seller, but packaging could be better.", CreatedAt: "1 week ago"},
		{ID: "r3", TargetUserID: "u2", Reviewer: at(0), Rating: 5, Text: "Amazing retro collection. Will buy again.", CreatedAt: "3 days ago"},
	}
}

// SeedComments 初始商品评论
func SeedComments(users []model.User) []model.Comment {
	at := func(i int) model.User {
		if i < len(users) {
			return users[i].Public()
		}
		return model.User{}
	}
	return []model.Comment{
		{ID: "c1", ItemID: "i1", User: at(1), Text: "Is this still available? I am very interested!", CreatedAt: "2h ago"},
		{ID: "c2", ItemID: "i1", User: at(2), Text: "The condition looks amazing for its age.", CreatedAt: "1h ago"},
		{ID: "c3", ItemID: "i2", User: at(0), Text: "Does it come with the expansion pak?", CreatedAt: "30m ago"},
		{ID: "c4", ItemID: "i2", User: at(3), Text: "Classic console. Best of all time.", CreatedAt: "15m ago"},
	}
}
