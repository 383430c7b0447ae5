package constants

// Defaults applied when the client leaves a field unset
const DEFAULT_STOCK_QUANTITY = 999
const DEFAULT_RATING = float64(4.5)

// Image fallbacks
const PLACEHOLDER_BUSINESS_IMAGE = "https://images.unsplash.com/photo-1556761175-b413da4baf72?w=800"
const FALLBACK_PRODUCT_IMAGE = "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=800"
const FALLBACK_AD_PRODUCT_IMAGE = "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500"

// External provider endpoints
const UNSPLASH_SEARCH_URL = "https://api.unsplash.com/search/photos"
const UNSPLASH_SOURCE_URL = "https://source.unsplash.com/800x600/?"
const EXPO_PUSH_URL = "https://exp.host/--/api/v2/push/send"
const APPGEN_UPLOAD_URL = "https://app-cdn.appgen.com/upload"
const VERCEL_BLOB_URL = "https://blob.vercel-storage.com"

// Order status values
const ORDER_STATUS_PENDING = "pending"
const ORDER_STATUS_PROCESSING = "processing"
const ORDER_STATUS_READY = "ready"
const ORDER_STATUS_OUT_FOR_DELIVERY = "out_for_delivery"
const ORDER_STATUS_DELIVERED = "delivered"
const ORDER_STATUS_COMPLETED = "completed"
const ORDER_STATUS_CANCELLED = "cancelled"

// Upload limits
const MAX_UPLOAD_BYTES = int64(10 << 20)

// Error responses
const BUSINESS_NOT_FOUND = "Business not found"
const PRODUCT_NOT_FOUND = "Product not found"
const ORDER_NOT_FOUND = "Order not found"
const USER_NOT_FOUND = "User not found"
const AD_NOT_FOUND = "Ad not found or unauthorized"
const PROMO_CODE_NOT_FOUND = "Promotional code not found"
const PROMO_CODE_INVALID = "Invalid or expired promotional code"
const PROMO_CODE_EXHAUSTED = "This promotional code has reached its usage limit"
const PROMO_CODE_USER_LIMIT = "You have already used this promotional code the maximum number of times"
const BUSINESS_HAS_AD = "Business already has an ad. Please update the existing one."
