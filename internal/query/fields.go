package query

// 各实体的字段注册表。IndexField 与 projection 包里文档的 json 字段一一对应。

var JobFields = NewRegistry("JOB",
	FieldSpec{Name: "title", Kind: KindMatch, IndexField: "title"},
	FieldSpec{Name: "description", Kind: KindMatch, IndexField: "description"},
	FieldSpec{Name: "company", Kind: KindTerm, IndexField: "company", Sortable: true},
	FieldSpec{Name: "location", Kind: KindTerm, IndexField: "location"},
	FieldSpec{Name: "employmentType", Kind: KindTerm, IndexField: "employment_type"},
	FieldSpec{Name: "careerLevel", Kind: KindTerm, IndexField: "career_level"},
	FieldSpec{Name: "tags", Kind: KindTerm, IndexField: "tags"},
	FieldSpec{Name: "minYears", Kind: KindRange, IndexField: "min_years", Sortable: true},
	FieldSpec{Name: "maxYears", Kind: KindRange, IndexField: "max_years", Sortable: true},
	FieldSpec{Name: "deadline", Kind: KindRange, IndexField: "deadline", Sortable: true},
	FieldSpec{Name: "hasDeadline", Kind: KindExists, IndexField: "deadline"},
	FieldSpec{Name: "createdAt", Kind: KindRange, IndexField: "created_at", Sortable: true},
	FieldSpec{Name: "deleted", Kind: KindTerm, IndexField: "deleted", Role: RoleMust},
	FieldSpec{Name: "viewCount", Kind: KindNested, IndexField: "view_count", Path: "popularity", InnerKind: KindRange, Sortable: true},
	FieldSpec{Name: "likeCount", Kind: KindNested, IndexField: "like_count", Path: "popularity", InnerKind: KindRange, Sortable: true},
)

var TechBlogFields = NewRegistry("TECH_BLOG",
	FieldSpec{Name: "title", Kind: KindMatch, IndexField: "title"},
	FieldSpec{Name: "summary", Kind: KindMatch, IndexField: "summary"},
	FieldSpec{Name: "content", Kind: KindMatch, IndexField: "content"},
	FieldSpec{Name: "company", Kind: KindTerm, IndexField: "company", Sortable: true},
	FieldSpec{Name: "tags", Kind: KindTerm, IndexField: "tags"},
	FieldSpec{Name: "publishedAt", Kind: KindRange, IndexField: "published_at", Sortable: true},
	FieldSpec{Name: "deleted", Kind: KindTerm, IndexField: "deleted", Role: RoleMust},
	FieldSpec{Name: "viewCount", Kind: KindNested, IndexField: "view_count", Path: "popularity", InnerKind: KindRange, Sortable: true},
	FieldSpec{Name: "likeCount", Kind: KindNested, IndexField: "like_count", Path: "popularity", InnerKind: KindRange, Sortable: true},
)

var CommunityPostFields = NewRegistry("COMMUNITY_POST",
	FieldSpec{Name: "title", Kind: KindMatch, IndexField: "title"},
	FieldSpec{Name: "content", Kind: KindMatch, IndexField: "content"},
	FieldSpec{Name: "category", Kind: KindTerm, IndexField: "category"},
	FieldSpec{Name: "authorId", Kind: KindTerm, IndexField: "author_id"},
	FieldSpec{Name: "tags", Kind: KindTerm, IndexField: "tags"},
	FieldSpec{Name: "createdAt", Kind: KindRange, IndexField: "created_at", Sortable: true},
	FieldSpec{Name: "deleted", Kind: KindTerm, IndexField: "deleted", Role: RoleMust},
	FieldSpec{Name: "viewCount", Kind: KindNested, IndexField: "view_count", Path: "popularity", InnerKind: KindRange, Sortable: true},
	FieldSpec{Name: "likeCount", Kind: KindNested, IndexField: "like_count", Path: "popularity", InnerKind: KindRange, Sortable: true},
	FieldSpec{Name: "commentCount", Kind: KindNested, IndexField: "comment_count", Path: "popularity", InnerKind: KindRange, Sortable: true},
)
